package payload

import (
	"fmt"
	"strings"
)

// validateName rejects names that could escape the store's root.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid payload name %q", name)
	}
	return nil
}
