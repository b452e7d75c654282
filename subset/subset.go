// Package subset copies the DICOM files of the studies matching a metadata
// query into a destination folder that mirrors the source layout.
package subset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kheops-album-tools/dicomfile"
	"kheops-album-tools/metadata"
	"kheops-album-tools/utils"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrDestinationIsSource = errors.New("subset: destination folder is the source folder")

// Report describes one extraction pass.
type Report struct {
	RunID      string
	Criteria   metadata.Criteria
	DestDir    string
	Records    int
	Studies    int
	Scanned    int
	Skipped    int
	Copied     []string
	BytesTotal int64
	Started    time.Time
	Finished   time.Time
}

func (r *Report) Summary() string {
	return fmt.Sprintf("%s: %s matched %d records in %d studies, copied %s files (%s) out of %s scanned, %s skipped, took %s",
		r.RunID, r.Criteria.String(), r.Records, r.Studies,
		humanize.Comma(int64(len(r.Copied))), humanize.Bytes(uint64(r.BytesTotal)),
		humanize.Comma(int64(r.Scanned)), humanize.Comma(int64(r.Skipped)),
		r.Finished.Sub(r.Started).Round(time.Millisecond))
}

type Extractor struct {
	reader dicomfile.Reader
	locker Locker
	logger *zap.Logger
}

func NewExtractor(reader dicomfile.Reader, locker Locker, logger *zap.Logger) *Extractor {
	if locker == nil {
		locker = NopLocker{}
	}
	return &Extractor{
		reader: reader,
		locker: locker,
		logger: logger,
	}
}

// Extract copies every file under sourceDir whose StudyInstanceUID belongs to
// a record of store matching criteria. destDir is created even when nothing
// matches. Files already present in destDir are overwritten.
func (e *Extractor) Extract(ctx context.Context, sourceDir, destDir string, store metadata.Store, criteria metadata.Criteria) (*Report, error) {
	isDir, err := utils.IsDir(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("subset: source folder: %w", err)
	}
	if !isDir {
		return nil, fmt.Errorf("subset: source folder %q is not a directory", sourceDir)
	}
	skip, err := nestedDir(sourceDir, destDir)
	if err != nil {
		return nil, err
	}

	lease, err := e.locker.Lock(ctx, destDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lease.Release(context.Background()); err != nil {
			e.logger.Warn("cannot release destination lock", zap.String("dest", destDir), zap.Error(err))
		}
	}()

	report := &Report{
		RunID:    uuid.New().String(),
		Criteria: criteria,
		DestDir:  destDir,
		Copied:   make([]string, 0),
		Started:  time.Now(),
	}

	records, err := store.Find(ctx, criteria)
	if err != nil {
		return nil, err
	}
	studies := metadata.StudyInstanceUIDs(records)
	report.Records = len(records)
	report.Studies = len(studies)
	e.logger.Info("metadata matched",
		zap.String("run_id", report.RunID),
		zap.String("criteria", criteria.String()),
		zap.Int("records", report.Records),
		zap.Int("studies", report.Studies))

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, err
	}

	err = filepath.WalkDir(sourceDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := lease.Refresh(ctx); err != nil {
			return err
		}
		if d.IsDir() {
			if skip != "" && path == skip {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 {
			// Links to files are followed; links to folders are not walked.
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				e.logger.Warn("skipping link", zap.String("file", path), zap.Error(err))
				report.Scanned++
				report.Skipped++
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}
		report.Scanned++

		ok, err := e.reader.Sniff(path)
		if err != nil {
			return err
		}
		if !ok {
			report.Skipped++
			return nil
		}

		uid, err := e.reader.ReadStudyInstanceUID(path)
		if errors.Is(err, dicomfile.ErrNoStudyInstanceUID) {
			e.logger.Warn("file has no StudyInstanceUID", zap.String("file", path))
			report.Skipped++
			return nil
		}
		if err != nil {
			return fmt.Errorf("subset: %s: %w", path, err)
		}
		if !studies[uid] {
			return nil
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(destDir, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		n, err := utils.CopyFile(path, target)
		if err != nil {
			return err
		}
		report.Copied = append(report.Copied, rel)
		report.BytesTotal += n
		e.logger.Info("copied", zap.String("file", rel), zap.String("study", uid))
		return nil
	})
	report.Finished = time.Now()
	if err != nil {
		return report, err
	}

	e.logger.Info(report.Summary())
	return report, nil
}

// ExtractAll runs one pass per criteria row, in order, into the same
// destination. It stops at the first failing pass.
func (e *Extractor) ExtractAll(ctx context.Context, sourceDir, destDir string, store metadata.Store, rows []metadata.Criteria) ([]*Report, error) {
	reports := make([]*Report, 0, len(rows))
	for _, criteria := range rows {
		report, err := e.Extract(ctx, sourceDir, destDir, store, criteria)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// nestedDir returns the path of destDir as seen from a walk of sourceDir
// when destDir lies inside sourceDir, and "" otherwise. A destination that is
// the source folder itself is refused.
func nestedDir(sourceDir, destDir string) (string, error) {
	if sourceInfo, err := os.Stat(sourceDir); err == nil {
		if destInfo, err := os.Stat(destDir); err == nil && os.SameFile(sourceInfo, destInfo) {
			return "", fmt.Errorf("%w: %s", ErrDestinationIsSource, destDir)
		}
	}

	absSource, err := filepath.Abs(sourceDir)
	if err != nil {
		return "", err
	}
	absDest, err := filepath.Abs(destDir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absSource, absDest)
	if err == nil && rel == "." {
		return "", fmt.Errorf("%w: %s", ErrDestinationIsSource, destDir)
	}
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", nil
	}
	return filepath.Join(sourceDir, rel), nil
}
