package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"paperflow/internal/middleware"
	"paperflow/internal/models"
	"paperflow/internal/observability"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Signer stamps an approval attestation onto a document's bytes. Non-PDF
// artifacts pass through unchanged.
type Signer interface {
	Sign(ctx context.Context, doc *models.Document, data []byte, approver *models.User, stage models.Stage) ([]byte, error)
}

// SigningService implements Signer with pdfcpu watermarks: the approver's
// stored signature image plus a caption on the first page, bottom-right, or
// a bordered text stamp when no usable image exists.
type SigningService struct {
	now func() time.Time
}

func NewSigningService() *SigningService {
	return &SigningService{now: time.Now}
}

// firstPage limits stamping to page one.
var firstPage = []string{"1"}

func (s *SigningService) Sign(ctx context.Context, doc *models.Document, data []byte, approver *models.User, stage models.Stage) ([]byte, error) {
	if !isPDF(doc.FileType, doc.FileName) {
		observability.SigningOutcomes.WithLabelValues("passthrough").Inc()
		return data, nil
	}

	start := s.now()
	timestamp := start.Format("02-01-2006 15:04")
	label := stage.Label()

	signature := approver.SignatureData
	if stage == models.StageHod && len(approver.HodSignatureData) > 0 {
		signature = approver.HodSignatureData
	}

	if len(signature) > 0 {
		signed, err := s.stampImage(data, signature, approver.Name, label, timestamp)
		if err == nil {
			observability.ObserveSigning("image", start)
			return signed, nil
		}
		// A broken signature asset degrades to the text stamp rather than
		// blocking the approval.
		middleware.Logger.WarnContext(ctx, "signature image stamp failed, falling back to text",
			slog.Uint64("document_id", uint64(doc.ID)),
			slog.Uint64("approver_id", uint64(approver.ID)),
			slog.String("stage", string(stage)),
			slog.String("error", err.Error()),
		)
	}

	signed, err := s.stampText(data, approver.Name, label, timestamp)
	if err != nil {
		observability.ObserveSigning("error", start)
		return nil, models.NewInternalError(fmt.Errorf("stamp approval on %q: %w", doc.FileName, err))
	}
	observability.ObserveSigning("text_fallback", start)
	return signed, nil
}

func (s *SigningService) stampImage(data, signature []byte, name, label, timestamp string) ([]byte, error) {
	imageWM, err := api.ImageWatermarkForReader(bytes.NewReader(signature),
		"position:br, offset:-45 70, scalefactor:0.2 abs, rotation:0, opacity:1",
		true, false, types.POINTS)
	if err != nil {
		return nil, err
	}

	var withImage bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(data), &withImage, firstPage, imageWM, nil); err != nil {
		return nil, err
	}

	caption := fmt.Sprintf("Digitally Signed by %s (%s)\nDate: %s", name, label, timestamp)
	captionWM, err := api.TextWatermark(caption,
		"fontname:Helvetica, points:8, position:br, offset:-45 45, scalefactor:1 abs, rotation:0, fillcolor:#1a1a1a",
		true, false, types.POINTS)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(withImage.Bytes()), &out, firstPage, captionWM, nil); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (s *SigningService) stampText(data []byte, name, label, timestamp string) ([]byte, error) {
	text := fmt.Sprintf("APPROVED BY %s\n%s\nDate: %s", label, name, timestamp)
	wm, err := api.TextWatermark(text,
		"fontname:Helvetica-Bold, points:10, position:br, offset:-45 55, scalefactor:1 abs, rotation:0, fillcolor:#006400, bgcolor:#ffffff, border:1 round #2e8b57, opacity:1",
		true, false, types.POINTS)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(data), &out, firstPage, wm, nil); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func isPDF(fileType, fileName string) bool {
	if strings.EqualFold(strings.TrimSpace(fileType), "application/pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(fileName), ".pdf")
}
