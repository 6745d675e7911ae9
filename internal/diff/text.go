package diff

import (
	"bytes"
	"os"
	"unicode/utf8"
)

// textProbeBytes bounds the prefix scanned by the text heuristic.
const textProbeBytes = 8 << 10 // 8 KiB

// isText reports whether the file looks like text: no NUL byte in the
// probed prefix and the prefix decodes as UTF-8. The final bytes of the
// probe are trimmed so a rune split at the probe boundary does not
// misclassify the file.
func isText(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, textProbeBytes)
	n, _ := f.Read(buf)
	if n == 0 {
		// Empty files diff as text.
		return true
	}
	probe := buf[:n]

	if bytes.IndexByte(probe, 0) >= 0 {
		return false
	}

	// A full probe may end mid-rune; drop up to 3 trailing bytes.
	if n == textProbeBytes {
		for i := 0; i < utf8.UTFMax-1 && len(probe) > 0; i++ {
			if utf8.Valid(probe) {
				break
			}
			probe = probe[:len(probe)-1]
		}
	}
	return utf8.Valid(probe)
}
