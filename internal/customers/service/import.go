package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"voicecrm_backend/internal/customers/repository"
	"voicecrm_backend/internal/events"
	"voicecrm_backend/platform/apperr"
	"voicecrm_backend/platform/phone"
)

// maxImportSize caps the accepted upload at 10 MiB.
const maxImportSize = 10 << 20

// maxImportErrors caps the per-row error list returned to the client.
const maxImportErrors = 50

// ImportResult summarizes a bulk CSV import.
type ImportResult struct {
	TotalRows int      `json:"totalRows"`
	Imported  int      `json:"imported"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// header synonyms, matched after lowercasing and stripping spaces,
// underscores and hyphens.
var (
	nameHeaders  = map[string]bool{"name": true, "fullname": true, "customername": true}
	phoneHeaders = map[string]bool{"phone": true, "phonenumber": true, "telephone": true, "mobile": true}
	emailHeaders = map[string]bool{"email": true, "emailaddress": true, "mail": true}
)

// ImportCSV parses the uploaded file, validates and deduplicates the rows,
// and inserts them in a single bulk call. Rows whose phone number already
// exists (in the file or in storage) are skipped, invalid rows are counted
// as failed, and one import event is published when anything was inserted.
// The original file is archived best-effort when storage is configured.
func (s *Service) ImportCSV(ctx context.Context, filename string, file io.Reader) (*ImportResult, error) {
	data, err := io.ReadAll(io.LimitReader(file, maxImportSize+1))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, "failed to read upload", err)
	}
	if len(data) > maxImportSize {
		return nil, apperr.Validation("import file exceeds the 10 MB limit")
	}

	rows, result, err := s.parseImportFile(data)
	if err != nil {
		return nil, err
	}

	// The bulk insert and the archive upload are independent; run them
	// concurrently. Archiving is best effort and never fails the import.
	g, gctx := errgroup.WithContext(ctx)
	if len(rows) > 0 {
		g.Go(func() error {
			inserted, err := s.store.BulkAdd(gctx, rows)
			if err != nil {
				return apperr.Wrap(apperr.KindInternal, "failed to import customers", err)
			}
			result.Imported = int(inserted)
			// Rows the database refused are phone numbers that already exist.
			result.Skipped += len(rows) - int(inserted)
			return nil
		})
	}
	g.Go(func() error {
		s.archiveImport(gctx, filename, data)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if result.Imported > 0 {
		s.bus.Publish(ctx, events.CustomersImported{
			BaseEvent: events.NewBaseEvent(),
			Imported:  result.Imported,
			Skipped:   result.Skipped,
			Failed:    result.Failed,
		})
	}

	return result, nil
}

// parseImportFile turns the CSV bytes into validated bulk-insert rows and a
// partially filled result (counts for invalid and in-file duplicate rows).
func (s *Service) parseImportFile(data []byte) ([]repository.ImportRow, *ImportResult, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, apperr.Validation("import file is empty or not valid CSV")
	}

	nameCol, phoneCol, emailCol := -1, -1, -1
	for i, h := range header {
		switch key := normalizeHeader(h); {
		case nameHeaders[key]:
			nameCol = i
		case phoneHeaders[key]:
			phoneCol = i
		case emailHeaders[key]:
			emailCol = i
		}
	}
	if nameCol < 0 || phoneCol < 0 {
		return nil, nil, apperr.Validation("import file must have name and phone columns")
	}

	result := &ImportResult{}
	var rows []repository.ImportRow
	seen := make(map[string]bool)

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		result.TotalRows++
		if err != nil {
			result.Failed++
			result.addError(line, "malformed CSV row")
			continue
		}

		name := strings.TrimSpace(field(record, nameCol))
		rawPhone := strings.TrimSpace(field(record, phoneCol))
		if name == "" || rawPhone == "" {
			result.Failed++
			result.addError(line, "missing name or phone")
			continue
		}

		normalized := phone.NormalizeE164(rawPhone)
		if seen[normalized] {
			result.Skipped++
			continue
		}
		seen[normalized] = true

		var email *string
		if v := strings.TrimSpace(field(record, emailCol)); v != "" {
			if !strings.Contains(v, "@") {
				result.Failed++
				result.addError(line, "invalid email address")
				continue
			}
			email = &v
		}

		rows = append(rows, repository.ImportRow{
			Name:        name,
			PhoneNumber: normalized,
			Email:       email,
		})
	}

	return rows, result, nil
}

func (s *Service) archiveImport(ctx context.Context, filename string, data []byte) {
	if s.archiver == nil || !s.archiver.Enabled() {
		return
	}
	if err := s.archiver.Archive(ctx, filename, data); err != nil {
		s.log.WithContext(ctx).Warn("failed to archive import file",
			"filename", filename, "error", err.Error())
	}
}

func (r *ImportResult) addError(line int, reason string) {
	if len(r.Errors) >= maxImportErrors {
		return
	}
	r.Errors = append(r.Errors, fmt.Sprintf("row %d: %s", line, reason))
}

func normalizeHeader(h string) string {
	replacer := strings.NewReplacer(" ", "", "_", "", "-", "")
	return replacer.Replace(strings.ToLower(strings.TrimSpace(h)))
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}
