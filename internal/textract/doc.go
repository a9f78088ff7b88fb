package textract

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FindLibreOffice locates the soffice binary used for legacy .doc conversion.
// Returns an empty string when LibreOffice is not installed.
func FindLibreOffice() string {
	if path, err := exec.LookPath("soffice"); err == nil {
		return path
	}

	var candidates []string
	if runtime.GOOS == "darwin" {
		candidates = []string{
			"/Applications/LibreOffice.app/Contents/MacOS/soffice",
			"/usr/local/bin/soffice",
		}
	} else {
		candidates = []string{
			"/usr/bin/soffice",
			"/usr/lib/libreoffice/program/soffice",
		}
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// DocConverter converts legacy .doc files to .docx with LibreOffice headless
// mode. A dedicated user profile directory avoids clashing with a running
// LibreOffice instance.
type DocConverter struct {
	soffice    string
	profileDir string
}

// NewDocConverter builds a converter around the given soffice binary. When
// sofficePath is empty the binary is discovered automatically.
func NewDocConverter(sofficePath string) (*DocConverter, error) {
	if sofficePath == "" {
		sofficePath = FindLibreOffice()
	}
	if sofficePath == "" {
		return nil, eris.New("textract: LibreOffice not found, cannot convert .doc files")
	}
	profileDir, err := os.MkdirTemp("", "lo_profile_")
	if err != nil {
		return nil, eris.Wrap(err, "textract: create LibreOffice profile dir")
	}
	return &DocConverter{soffice: sofficePath, profileDir: profileDir}, nil
}

// Close removes the converter's temporary profile directory.
func (c *DocConverter) Close() error {
	return os.RemoveAll(c.profileDir)
}

// Convert converts a .doc file to .docx under outputDir and returns the path
// of the converted file.
func (c *DocConverter) Convert(ctx context.Context, docPath, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", eris.Wrapf(err, "textract: create output dir %s", outputDir)
	}

	cmd := exec.CommandContext(ctx, c.soffice,
		"--headless",
		"--norestore",
		"-env:UserInstallation=file://"+c.profileDir,
		"--convert-to", "docx",
		"--outdir", outputDir,
		docPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", eris.Wrapf(err, "textract: soffice convert %s: %s", docPath, strings.TrimSpace(string(out)))
	}

	stem := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))
	converted := filepath.Join(outputDir, stem+".docx")
	info, err := os.Stat(converted)
	if err != nil || info.Size() == 0 {
		return "", eris.Errorf("textract: soffice produced no output for %s", docPath)
	}

	zap.L().Debug("textract: converted .doc",
		zap.String("source", docPath),
		zap.String("converted", converted),
	)
	return converted, nil
}
