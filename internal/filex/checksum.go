package filex

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/isoshare/internal/common"
)

// DefaultBlockSize is how many bytes Checksum reads per call.
const DefaultBlockSize = 4 * 1024

// Digest is the content identity of a file.
type Digest struct {
	Hex  string
	Size int64
}

// Checksum streams the file at path through MD5 in blockSize reads, never
// holding more than one block in memory. The file size is checked before
// and after so that a file modified mid-read is reported rather than
// hashed inconsistently.
func Checksum(path string, blockSize int) (Digest, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}

	f, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("%w: open %s: %w", common.ErrChecksumIO, path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return Digest{}, fmt.Errorf("%w: stat %s: %w", common.ErrChecksumIO, path, err)
	}
	size := fi.Size()

	hash := md5.New()
	buf := make([]byte, blockSize)

	var total int64
	for {
		n, err := f.Read(buf)
		if n > 0 {
			hash.Write(buf[:n])
			total += int64(n)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Digest{}, fmt.Errorf("%w: read %s: %w", common.ErrChecksumIO, path, err)
		}
	}

	if total != size {
		return Digest{}, fmt.Errorf("%w: %s changed size during hashing from %d to %d", common.ErrChecksumIO, path, size, total)
	}
	if fi, err := f.Stat(); err != nil {
		return Digest{}, fmt.Errorf("%w: stat %s: %w", common.ErrChecksumIO, path, err)
	} else if fi.Size() != size {
		return Digest{}, fmt.Errorf("%w: %s changed size during hashing from %d to %d", common.ErrChecksumIO, path, size, fi.Size())
	}

	return Digest{Hex: hex.EncodeToString(hash.Sum(nil)), Size: total}, nil
}
