// Package session keeps the selected device, the device list and the per-device
// caches consistent while operations run in the background.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/reactivex/rxgo/v2"
	"github.com/rs/zerolog"

	"github.com/sephiroth74/go_adb_apps/events"
	"github.com/sephiroth74/go_adb_apps/installer"
	"github.com/sephiroth74/go_adb_apps/transport"
	"github.com/sephiroth74/go_adb_apps/types"
)

var (
	// ErrStale is returned by a load whose result was superseded before it could be applied.
	ErrStale = errors.New("result superseded by a newer request")
	// ErrClosed is returned by operations started after Shutdown.
	ErrClosed = errors.New("session closed")
	// ErrShutdownTimeout is returned by Shutdown when workers survive the kill.
	ErrShutdownTimeout = errors.New("workers still running after shutdown")
)

// killWait bounds how long Shutdown waits for workers once their processes were killed.
const killWait = 5 * time.Second

// Backend runs the adb operations. It is implemented by adbapps.Client.
type Backend interface {
	ListDevices(ctx context.Context) ([]types.Device, error)
	LoadDetails(ctx context.Context, id string) (types.Device, error)
	ListPackages(ctx context.Context, id string, filter types.PackageFilter) ([]types.InstalledApp, error)
	Install(ctx context.Context, apkPath string, id string) types.Outcome
	InstallBatch(ctx context.Context, apkPaths []string, id string) installer.BatchOutcome
	Uninstall(ctx context.Context, id string, packageName string) types.Outcome
	Extract(ctx context.Context, id string, remotePath string, localPath string) types.Outcome
	ExtractPackage(ctx context.Context, id string, packageName string, dir string) types.Outcome
	Version(ctx context.Context) (string, error)
	SetAdbPath(path string)
}

// AppList is the Item of an AppsLoaded event.
type AppList struct {
	Device string
	Filter types.PackageFilter
	Apps   []types.InstalledApp
}

// AdbCheck is the Item of an AdbStatus event.
type AdbCheck struct {
	Version string
	Err     error
}

// Selection holds the loads started by SelectDevice. Both tasks are nil when
// the device was already selected.
type Selection struct {
	Device  string
	Changed bool
	Details *Task[types.Device]
	Apps    *Task[[]types.InstalledApp]
}

type appsCacheKey struct {
	device string
	filter types.PackageFilter
}

type Session struct {
	backend Backend
	log     zerolog.Logger

	// stopCtx stops workers from starting new commands; killCtx terminates running ones.
	stopCtx context.Context
	stop    context.CancelFunc
	killCtx context.Context
	kill    context.CancelFunc
	wg      sync.WaitGroup

	source       chan rxgo.Item
	observable   rxgo.Observable
	sourceMu     sync.RWMutex
	sourceClosed bool

	mu       sync.RWMutex
	closed   bool
	devices  []types.Device
	selected string
	filter   types.PackageFilter
	details  map[string]types.Device
	apps     map[appsCacheKey][]types.InstalledApp
	tasks    map[string]context.CancelFunc
	gens     generations

	locks *keyLock
}

func NewSession(backend Backend, log zerolog.Logger) *Session {
	s := &Session{
		backend: backend,
		log:     log,
		source:  make(chan rxgo.Item, 64),
		details: map[string]types.Device{},
		apps:    map[appsCacheKey][]types.InstalledApp{},
		tasks:   map[string]context.CancelFunc{},
		gens:    generations{},
		locks:   newKeyLock(),
	}
	s.stopCtx, s.stop = context.WithCancel(context.Background())
	s.killCtx, s.kill = context.WithCancel(context.Background())
	s.observable = rxgo.FromEventSource(s.source, rxgo.WithBackPressureStrategy(rxgo.Drop))
	return s
}

// Events is a hot observable of events.AdbEvent items. Observers only receive
// events emitted after they subscribed; slow observers miss events.
func (s *Session) Events() rxgo.Observable {
	return s.observable
}

func (s *Session) emit(eventType events.EventType, item interface{}) {
	s.sourceMu.RLock()
	defer s.sourceMu.RUnlock()
	if s.sourceClosed {
		return
	}
	select {
	case s.source <- rxgo.Of(events.AdbEvent{Event: eventType, Item: item}):
	default:
		s.log.Debug().Msgf("event %s dropped", eventType)
	}
}

// start runs fn in its own goroutine. Tasks bound to a device run one at a time
// per device.
func start[T any](s *Session, name string, device string, fn func(ctx context.Context) (T, error)) *Task[T] {
	ctx, cancel := context.WithCancel(s.stopCtx)
	task := newTask[T](name, device, cancel)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		var zero T
		task.finish(zero, ErrClosed)
		return task
	}
	s.tasks[task.id] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer cancel()
		defer s.forget(task.id)

		ctx := transport.DetachProcesses(ctx, s.killCtx)
		op := events.Operation{TaskID: task.id, Name: name, Device: device}
		s.emit(events.OperationStarted, op)

		result, err := run(s, ctx, device, fn)
		task.finish(result, err)

		op.Err = err
		op.Result = result
		s.emit(events.OperationFinished, op)
		if err != nil && !errors.Is(err, ErrStale) {
			s.log.Debug().Str("task", name).Str("device", device).Msgf("task failed: %v", err)
		}
	}()
	return task
}

func run[T any](s *Session, ctx context.Context, device string, fn func(ctx context.Context) (T, error)) (T, error) {
	if device != "" {
		release, err := s.locks.acquire(ctx, device)
		if err != nil {
			var zero T
			return zero, err
		}
		defer release()
	}
	return fn(ctx)
}

func (s *Session) forget(id string) {
	s.mu.Lock()
	delete(s.tasks, id)
	s.mu.Unlock()
}

// check fails when ctx was cancelled or a newer load of key was started.
func (s *Session) check(ctx context.Context, key string, gen uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.gens.current(key, gen) {
		return ErrStale
	}
	return nil
}

// apply runs fn with the state locked, unless the load is stale or cancelled.
func (s *Session) apply(ctx context.Context, key string, gen uint64, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.gens.current(key, gen) {
		return ErrStale
	}
	fn()
	return nil
}

func (s *Session) nextGen(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens.next(key)
}

// region Devices

// RefreshDevices scans the connected devices and reconciles the selection with them.
func (s *Session) RefreshDevices() *Task[[]types.Device] {
	gen := s.nextGen(devicesKey)
	return start(s, "scan devices", "", func(ctx context.Context) ([]types.Device, error) {
		if err := s.check(ctx, devicesKey, gen); err != nil {
			return nil, err
		}
		devices, err := s.backend.ListDevices(ctx)
		if err != nil {
			return nil, err
		}

		var cleared string
		if err := s.apply(ctx, devicesKey, gen, func() { cleared = s.reconcile(devices) }); err != nil {
			return nil, err
		}

		s.emit(events.DevicesChanged, devices)
		if cleared != "" {
			s.log.Info().Str("device", cleared).Msg("selected device disconnected")
			s.emit(events.SelectionCleared, cleared)
		}
		return devices, nil
	})
}

// reconcile stores the new device list and drops the state of vanished devices.
// It returns the id of the selection when it was cleared. Must hold s.mu.
func (s *Session) reconcile(devices []types.Device) (cleared string) {
	s.devices = append([]types.Device(nil), devices...)

	live := make(map[string]bool, len(devices))
	for _, d := range devices {
		live[d.ID] = true
	}

	for id := range s.details {
		if !live[id] {
			s.dropDevice(id)
		}
	}
	for key := range s.apps {
		if !live[key.device] {
			s.dropDevice(key.device)
		}
	}

	if s.selected != "" && !live[s.selected] {
		cleared = s.selected
		s.selected = ""
		s.dropDevice(cleared)
	}
	return cleared
}

// dropDevice forgets the caches of id and makes its loads in flight stale. Must hold s.mu.
func (s *Session) dropDevice(id string) {
	delete(s.details, id)
	for key := range s.apps {
		if key.device == id {
			delete(s.apps, key)
		}
	}
	s.gens.invalidate(detailsKey(id), appsKey(id))
}

func (s *Session) Devices() []types.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Device(nil), s.devices...)
}

func (s *Session) isListed(id string) bool {
	for _, d := range s.devices {
		if d.ID == id {
			return true
		}
	}
	return false
}

// endregion Devices

// region Selection

// SelectDevice makes id the current device and loads its details and apps.
// Selecting the current device again reloads nothing.
func (s *Session) SelectDevice(id string) (Selection, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Selection{}, ErrClosed
	}
	if !s.isListed(id) {
		s.mu.Unlock()
		return Selection{}, types.DeviceUnavailable(id)
	}
	if id == s.selected {
		s.mu.Unlock()
		return Selection{Device: id}, nil
	}

	if previous := s.selected; previous != "" {
		s.gens.invalidate(detailsKey(previous), appsKey(previous))
	}
	s.selected = id
	filter := s.filter
	s.mu.Unlock()

	s.log.Debug().Str("device", id).Msg("device selected")
	s.emit(events.SelectionChanged, id)

	return Selection{
		Device:  id,
		Changed: true,
		Details: s.loadDetails(id),
		Apps:    s.loadApps(id, filter),
	}, nil
}

// ClearSelection deselects the current device.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	previous := s.selected
	s.selected = ""
	if previous != "" {
		s.gens.invalidate(detailsKey(previous), appsKey(previous))
	}
	s.mu.Unlock()

	if previous != "" {
		s.emit(events.SelectionCleared, previous)
	}
}

func (s *Session) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Details returns the cached details of id.
func (s *Session) Details(id string) (types.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.details[id]
	return d, ok
}

// requireSelected returns the selected device if it is still in the latest device list.
func (s *Session) requireSelected() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", ErrClosed
	}
	if s.selected == "" || !s.isListed(s.selected) {
		return "", types.DeviceUnavailable(s.selected)
	}
	return s.selected, nil
}

func (s *Session) loadDetails(id string) *Task[types.Device] {
	key := detailsKey(id)
	gen := s.nextGen(key)
	return start(s, "load details", id, func(ctx context.Context) (types.Device, error) {
		if err := s.check(ctx, key, gen); err != nil {
			return types.Device{}, err
		}
		device, err := s.backend.LoadDetails(ctx, id)
		if err != nil {
			return types.Device{}, err
		}
		if err := s.apply(ctx, key, gen, func() { s.details[id] = device }); err != nil {
			return types.Device{}, err
		}
		s.emit(events.DetailsLoaded, device)
		return device, nil
	})
}

// endregion Selection

// region Apps

func (s *Session) loadApps(id string, filter types.PackageFilter) *Task[[]types.InstalledApp] {
	key := appsKey(id)
	gen := s.nextGen(key)
	return start(s, "list apps", id, func(ctx context.Context) ([]types.InstalledApp, error) {
		if err := s.check(ctx, key, gen); err != nil {
			return nil, err
		}
		apps, err := s.backend.ListPackages(ctx, id, filter)
		if err != nil {
			return nil, err
		}
		if err := s.apply(ctx, key, gen, func() { s.apps[appsCacheKey{id, filter}] = apps }); err != nil {
			return nil, err
		}
		s.emit(events.AppsLoaded, AppList{Device: id, Filter: filter, Apps: apps})
		return apps, nil
	})
}

// RefreshApps reloads the app list of the selected device with the current filter.
func (s *Session) RefreshApps() (*Task[[]types.InstalledApp], error) {
	id, err := s.requireSelected()
	if err != nil {
		return nil, err
	}
	return s.loadApps(id, s.Filter()), nil
}

// SetFilter changes the package filter and reloads the apps of the selected
// device. It returns nil when nothing needs to be loaded.
func (s *Session) SetFilter(filter types.PackageFilter) *Task[[]types.InstalledApp] {
	s.mu.Lock()
	if s.filter == filter {
		s.mu.Unlock()
		return nil
	}
	s.filter = filter
	id := s.selected
	s.mu.Unlock()

	if id == "" {
		return nil
	}
	return s.loadApps(id, filter)
}

func (s *Session) Filter() types.PackageFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// Apps returns the cached apps of the selected device for the current filter.
func (s *Session) Apps() ([]types.InstalledApp, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == "" {
		return nil, false
	}
	apps, ok := s.apps[appsCacheKey{s.selected, s.filter}]
	return apps, ok
}

// afterChange reloads the apps of id when it is still selected.
func (s *Session) afterChange(id string) {
	s.mu.RLock()
	selected, filter := s.selected, s.filter
	s.mu.RUnlock()
	if selected == id {
		s.loadApps(id, filter)
	}
}

// endregion Apps

// region Operations

// settle discards result when ctx was cancelled while the command ran. Otherwise
// the apps of id are reloaded when changed is true.
func settle[T any](s *Session, ctx context.Context, id string, result T, changed bool) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	if changed {
		s.afterChange(id)
	}
	return result, nil
}

func (s *Session) Install(apkPath string) (*Task[types.Outcome], error) {
	id, err := s.requireSelected()
	if err != nil {
		return nil, err
	}
	return start(s, "install", id, func(ctx context.Context) (types.Outcome, error) {
		outcome := s.backend.Install(ctx, apkPath, id)
		return settle(s, ctx, id, outcome, outcome.Success)
	}), nil
}

func (s *Session) InstallBatch(apkPaths []string) (*Task[installer.BatchOutcome], error) {
	id, err := s.requireSelected()
	if err != nil {
		return nil, err
	}
	paths := append([]string(nil), apkPaths...)
	return start(s, "install batch", id, func(ctx context.Context) (installer.BatchOutcome, error) {
		outcome := s.backend.InstallBatch(ctx, paths, id)
		return settle(s, ctx, id, outcome, len(outcome.Succeeded) > 0)
	}), nil
}

func (s *Session) Uninstall(packageName string) (*Task[types.Outcome], error) {
	id, err := s.requireSelected()
	if err != nil {
		return nil, err
	}
	return start(s, "uninstall", id, func(ctx context.Context) (types.Outcome, error) {
		outcome := s.backend.Uninstall(ctx, id, packageName)
		return settle(s, ctx, id, outcome, outcome.Success)
	}), nil
}

func (s *Session) Extract(remotePath string, localPath string) (*Task[types.Outcome], error) {
	id, err := s.requireSelected()
	if err != nil {
		return nil, err
	}
	return start(s, "extract", id, func(ctx context.Context) (types.Outcome, error) {
		return settle(s, ctx, id, s.backend.Extract(ctx, id, remotePath, localPath), false)
	}), nil
}

func (s *Session) ExtractPackage(packageName string, dir string) (*Task[types.Outcome], error) {
	id, err := s.requireSelected()
	if err != nil {
		return nil, err
	}
	return start(s, "extract package", id, func(ctx context.Context) (types.Outcome, error) {
		return settle(s, ctx, id, s.backend.ExtractPackage(ctx, id, packageName, dir), false)
	}), nil
}

// CheckAdb runs `adb version` and publishes the result as an AdbStatus event.
func (s *Session) CheckAdb() *Task[string] {
	return start(s, "check adb", "", func(ctx context.Context) (string, error) {
		version, err := s.backend.Version(ctx)
		s.emit(events.AdbStatus, AdbCheck{Version: version, Err: err})
		return version, err
	})
}

// SetAdbPath changes the adb executable for the commands started afterwards.
func (s *Session) SetAdbPath(path string) {
	s.backend.SetAdbPath(path)
	s.log.Info().Str("adb_path", path).Msg("adb path changed")
	s.emit(events.ConfigChanged, path)
}

// Cancel requests the task with the given id to stop. It reports whether the task was running.
func (s *Session) Cancel(taskID string) bool {
	s.mu.RLock()
	cancel, ok := s.tasks[taskID]
	s.mu.RUnlock()
	if ok {
		cancel()
	}
	return ok
}

// endregion Operations

// Shutdown stops every worker and waits up to grace for them. Remaining adb
// processes are then killed. The event stream completes when Shutdown returns.
func (s *Session) Shutdown(grace time.Duration) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	defer s.closeEvents()

	s.stop()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.kill()
		return nil
	case <-time.After(grace):
	}

	s.log.Warn().Msgf("workers still running after %s, killing adb processes", grace)
	s.kill()

	select {
	case <-done:
		return nil
	case <-time.After(killWait):
		return ErrShutdownTimeout
	}
}

func (s *Session) closeEvents() {
	s.sourceMu.Lock()
	defer s.sourceMu.Unlock()
	if !s.sourceClosed {
		s.sourceClosed = true
		close(s.source)
	}
}
