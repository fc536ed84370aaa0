package action

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ghost-ng/Papertrail/internal/audit"
	"github.com/ghost-ng/Papertrail/internal/types"
	"github.com/ghost-ng/Papertrail/internal/workflow"
)

// AuditReader exposes the slice of the audit store that reports need.
type AuditReader interface {
	List(ctx context.Context, instanceID types.ID) ([]*audit.Event, error)
}

// ReportSink renders an instance's audit trail to a JSON file under the
// configured output directory. Report failure never blocks routing; the
// engine records it as an annotation and the instance proceeds.
type ReportSink struct {
	reader AuditReader
	outDir string
}

// NewReportSink creates a ReportSink writing under outDir.
func NewReportSink(reader AuditReader, outDir string) *ReportSink {
	return &ReportSink{reader: reader, outDir: outDir}
}

func (s *ReportSink) Type() workflow.ActionType {
	return workflow.ActionGenerateReport
}

// report is the rendered document written to disk.
type report struct {
	InstanceID   types.ID       `json:"instance_id"`
	DefinitionID types.ID       `json:"definition_id"`
	DocumentID   types.ID       `json:"document_id"`
	GeneratedAt  time.Time      `json:"generated_at"`
	Events       []*audit.Event `json:"events"`
}

func (s *ReportSink) Deliver(ctx context.Context, req Request) error {
	trail, err := s.reader.List(ctx, req.InstanceID)
	if err != nil {
		return types.WrapError(types.REPORT_FAILED, "failed to read audit trail", err)
	}

	data, err := json.MarshalIndent(report{
		InstanceID:   req.InstanceID,
		DefinitionID: req.DefinitionID,
		DocumentID:   req.DocumentID,
		GeneratedAt:  time.Now().UTC(),
		Events:       trail,
	}, "", "  ")
	if err != nil {
		return types.WrapError(types.REPORT_FAILED, "failed to render report", err)
	}

	if err := os.MkdirAll(s.outDir, 0o755); err != nil {
		return types.NewRetryableError(types.REPORT_FAILED, "failed to create report directory", err)
	}

	name := fmt.Sprintf("%s-%s.json", req.InstanceID, req.AttemptGroup)
	path := filepath.Join(s.outDir, name)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return types.NewRetryableError(types.REPORT_FAILED, "failed to write report", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return types.NewRetryableError(types.REPORT_FAILED, "failed to finalize report", err)
	}
	return nil
}

var _ DeliverySink = (*ReportSink)(nil)
