package adbapps

import (
	"context"
	"strconv"
	"strings"

	"github.com/essentialkaos/ek/v12/fmtutil"
	"github.com/magiconair/properties"

	"github.com/sephiroth74/go_adb_apps/types"
)

// LoadDetails reads the hardware and software details of id.
// A detail that cannot be read is left as types.Unknown.
func (c *Client) LoadDetails(ctx context.Context, id string) (types.Device, error) {
	if err := c.Conn.RequireDevice(ctx, id); err != nil {
		return types.Device{}, err
	}

	device := types.NewDevice(id, types.StatusDevice)
	sh := c.Shell(id)
	log := c.Log.With().Str("device", id).Logger()

	if props, err := sh.GetProps(ctx); err != nil {
		log.Warn().Msgf("getprop failed: %v", err)
	} else {
		device.Brand = prop(props, "ro.product.brand")
		device.Manufacturer = prop(props, "ro.product.manufacturer")
		device.Model = prop(props, "ro.product.model")
		device.Product = props.GetString("ro.product.name", "")
		device.AndroidVersion = prop(props, "ro.build.version.release")
		device.SdkVersion = prop(props, "ro.build.version.sdk")
		device.CPUArch = prop(props, "ro.product.cpu.abi")
	}

	if size, err := sh.DisplaySize(ctx); err == nil {
		device.Resolution = size.String()
	} else {
		log.Debug().Msgf("wm size failed: %v", err)
	}

	if density, err := sh.Density(ctx); err == nil {
		device.Density = density + " dpi"
	} else {
		log.Debug().Msgf("wm density failed: %v", err)
	}

	if mem, err := sh.MemInfo(ctx); err == nil {
		device.TotalRAM = formatMemory(mem.GetString("MemTotal", ""))
	} else {
		log.Debug().Msgf("meminfo failed: %v", err)
	}

	if used, total, err := sh.DiskUsage(ctx, "/data"); err == nil {
		device.Storage = used + " / " + total
	} else {
		log.Debug().Msgf("df failed: %v", err)
	}

	if err := ctx.Err(); err != nil {
		return types.Device{}, err
	}
	return device, nil
}

func prop(props *properties.Properties, key string) string {
	if value := strings.TrimSpace(props.GetString(key, "")); value != "" {
		return value
	}
	return types.Unknown
}

// formatMemory turns a /proc/meminfo value like "3809100 kB" into "3.6 GB".
func formatMemory(value string) string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return types.Unknown
	}
	kb, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || kb <= 0 {
		return types.Unknown
	}
	return fmtutil.PrettySize(kb*1024, " ")
}
