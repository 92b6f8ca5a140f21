// Package handle validates account handles against the platform's format
// rules and its reserved-word list.
package handle

import (
	_ "embed"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// handlePattern matches well-formed account handles.
var handlePattern = regexp.MustCompile(`^[a-z0-9_]{3,20}$`)

//go:embed reserved.yaml
var reservedYAML []byte

var (
	reserved     map[string]struct{}
	reservedOnce sync.Once
)

func loadReserved() {
	reservedOnce.Do(func() {
		var doc struct {
			Handles []string `yaml:"handles"`
		}
		// The embedded list is part of the build; a parse failure here is a
		// programming error, not a runtime condition.
		if err := yaml.Unmarshal(reservedYAML, &doc); err != nil {
			panic("handle: invalid embedded reserved list: " + err.Error())
		}
		reserved = make(map[string]struct{}, len(doc.Handles))
		for _, h := range doc.Handles {
			reserved[strings.ToLower(h)] = struct{}{}
		}
	})
}

// IsValid reports whether h is a well-formed handle: 3-20 characters of
// lowercase letters, digits, and underscores.
func IsValid(h string) bool {
	return handlePattern.MatchString(h)
}

// IsReserved reports whether h collides with a reserved word such as a
// routing prefix or a role name. The check is case-insensitive.
func IsReserved(h string) bool {
	loadReserved()
	_, ok := reserved[strings.ToLower(h)]
	return ok
}
