// Package merger is the Merger of spec.md §4.E: it concatenates
// part-files into the final artifact, in order, then removes them.
package merger

import (
	"fmt"
	"io"
	"os"

	"rangedl/internal/rderrors"
)

// Merge creates (truncating) finalPath and stream-copies each of
// partPaths into it in order, unlinking every part after it is copied. On
// any failure the final file may be left partial; callers must treat the
// download as Failed and the artifact as invalid, per spec.md §4.E.
func Merge(finalPath string, partPaths []string) error {
	out, err := os.OpenFile(finalPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return rderrors.IO("failed to create final artifact", err)
	}
	defer out.Close()

	for i, partPath := range partPaths {
		if err := copyAndRemove(out, partPath); err != nil {
			return rderrors.IO(fmt.Sprintf("failed to merge part %d", i), err)
		}
	}
	return nil
}

func copyAndRemove(out io.Writer, partPath string) error {
	in, err := os.Open(partPath)
	if err != nil {
		return err
	}
	_, copyErr := io.Copy(out, in)
	in.Close()
	if copyErr != nil {
		return copyErr
	}
	return os.Remove(partPath)
}
