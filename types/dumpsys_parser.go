package types

import "strings"

type DumpsysParser struct {
	Lines []string
}

func NewDumpsysParser(text string) DumpsysParser {
	return DumpsysParser{Lines: strings.Split(text, "\n")}
}

// FindValue returns the text after the first '=' of the first line containing "key=".
func (b DumpsysParser) FindValue(key string) (string, bool) {
	needle := key + "="
	for _, line := range b.Lines {
		if !strings.Contains(line, needle) {
			continue
		}
		index := strings.Index(line, "=")
		return strings.TrimSpace(line[index+1:]), true
	}
	return "", false
}
