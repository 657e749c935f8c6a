package vocab

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/mugpeng/droma-registry/pkg/harmonize"
)

const fetchAttempts = 3

// backoffUnit scales the exponential wait between download attempts.
var backoffUnit = time.Second

// Fetch downloads rawURL to dest, retrying failed attempts with backoff.
func Fetch(ctx context.Context, rawURL, dest string) error {
	client := &http.Client{Timeout: 10 * time.Minute}

	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt)) * backoffUnit
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d for %s", resp.StatusCode, rawURL)
			continue
		}

		f, err := os.Create(dest)
		if err != nil {
			resp.Body.Close()
			return fmt.Errorf("create file: %w", err)
		}
		_, copyErr := io.Copy(f, resp.Body)
		resp.Body.Close()
		closeErr := f.Close()

		if copyErr != nil {
			lastErr = copyErr
			continue
		}
		if closeErr != nil {
			return closeErr
		}
		return nil
	}
	return fmt.Errorf("download %s failed after %d attempts: %w", rawURL, fetchAttempts, lastErr)
}

// Unzip extracts a ZIP archive flat into destDir and returns the written paths.
func Unzip(src, destDir string) ([]string, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	var paths []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		destPath := filepath.Join(destDir, filepath.Base(f.Name))
		if err := extract(f, destPath); err != nil {
			return nil, err
		}
		paths = append(paths, destPath)
	}
	return paths, nil
}

func extract(f *zip.File, destPath string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return out.Close()
}

// Install downloads a vocabulary into root/id and loads it. A ZIP is
// extracted in place; a bare CSV gets a generated manifest with a header row
// and the name in the first column.
func Install(ctx context.Context, rawURL, root, id string, kind harmonize.Kind) (*Vocabulary, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	if id == "" || id == "." || strings.ContainsAny(id, `/\`) || !filepath.IsLocal(id) {
		return nil, &harmonize.ValidationError{Field: "id", Message: fmt.Sprintf("%q is not a plain directory name", id)}
	}
	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create vocab dir: %w", err)
	}

	name := "data.csv"
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); filepath.IsLocal(base) && base != "." {
			name = base
		}
	}
	dest := filepath.Join(dir, name)
	if err := Fetch(ctx, rawURL, dest); err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(name), ".zip") {
		if _, err := Unzip(dest, dir); err != nil {
			return nil, err
		}
		if err := os.Remove(dest); err != nil {
			return nil, fmt.Errorf("remove archive: %w", err)
		}
		name = "data.csv"
	}

	if _, err := os.Stat(filepath.Join(dir, "manifest.yaml")); os.IsNotExist(err) {
		m := &Manifest{
			ID:        id,
			Kind:      kind,
			Version:   time.Now().UTC().Format("2006-01-02"),
			Source:    "download",
			SourceURL: rawURL,
			DataFile:  name,
			Format:    FormatSpec{Delimiter: ",", HasHeader: true},
		}
		if err := WriteManifest(dir, m); err != nil {
			return nil, err
		}
	}
	return LoadVocabulary(dir)
}
