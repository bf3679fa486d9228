package filex

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/isoshare/internal/common"
)

// ReservedNameChars may not appear in a remote file name.
const ReservedNameChars = `"\/:*?|><`

// Policy is the local admission check applied before any network call.
type Policy struct {
	MaxSize       int64
	MaxNameLength int
}

// Validate rejects names with reserved characters, names longer than
// MaxNameLength characters, empty names and files above MaxSize.
func (p Policy) Validate(a Artifact) error {
	if a.Name == "" || strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: empty file name", common.ErrValidation)
	}
	if i := strings.IndexAny(a.Name, ReservedNameChars); i >= 0 {
		return fmt.Errorf("%w: file name %q contains reserved character %q", common.ErrValidation, a.Name, a.Name[i])
	}
	if n := utf8.RuneCountInString(a.Name); n > p.MaxNameLength {
		return fmt.Errorf("%w: file name is %d characters, limit is %d", common.ErrValidation, n, p.MaxNameLength)
	}
	if a.Size > p.MaxSize {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", common.ErrValidation, a.Name, a.Size, p.MaxSize)
	}
	if a.Size < 0 {
		return fmt.Errorf("%w: %s has negative size", common.ErrValidation, a.Name)
	}
	return nil
}
