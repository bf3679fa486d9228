package app

import (
	"fmt"
	"io"

	"golang.org/x/term"

	"github.com/dmitrijs2005/isoshare/internal/common"
	"github.com/dmitrijs2005/isoshare/internal/credential"
)

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// PromptSecret asks for the secret key on the terminal behind fd without
// echo. When fd is not a terminal there is nobody to ask and the result is a
// usage error.
//
// The caller owns the returned secret and should Destroy it.
func PromptSecret(w io.Writer, fd int) (credential.Secret, error) {
	if !isTerminal(fd) {
		return credential.Secret{}, fmt.Errorf("%w: secret key not given and stdin is not a terminal", common.ErrUsage)
	}
	if _, err := fmt.Fprint(w, "Enter secret key: "); err != nil {
		return credential.Secret{}, err
	}
	b, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return credential.Secret{}, fmt.Errorf("read secret key: %w", err)
	}
	if len(b) == 0 {
		return credential.Secret{}, fmt.Errorf("%w: empty secret key", common.ErrUsage)
	}
	return credential.SecretFromBytes(b), nil
}
