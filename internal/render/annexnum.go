package render

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// NextAnnexSeq scans the given directories for annex filenames carrying a
// U-YY-NN number in the current year and returns max(NN)+1, so generated
// numbering continues where the last run (or a hand-written annex) left off.
func NextAnnexSeq(now time.Time, scanDirs ...string) int {
	yy := now.Format("06")
	pattern := regexp.MustCompile(`(?i)U-` + yy + `-(\d+)`)

	max := 0
	for _, dir := range scanDirs {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // unreadable entries are not this scan's problem
			}
			if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".docx") {
				return nil
			}
			stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			if m := pattern.FindStringSubmatch(stem); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil && n > max {
					max = n
				}
			}
			return nil
		})
	}
	if max > 0 {
		zap.L().Debug("render: continuing annex numbering",
			zap.String("year", yy), zap.Int("last", max))
	}
	return max + 1
}

// FormatAnnexNumber renders a U-YY-NN annex number for the given date.
func FormatAnnexNumber(now time.Time, seq int) string {
	return fmt.Sprintf("U-%s-%02d", now.Format("06"), seq)
}
