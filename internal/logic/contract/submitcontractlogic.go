package contract

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/sentryai/sentry/internal/analysis"
	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/db"
	"github.com/sentryai/sentry/internal/extract"
	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/middleware"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

// Upload is a document sent as multipart form data.
type Upload struct {
	Filename string
	Data     []byte
}

type SubmitContractLogic struct {
	logging.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Submit a contract for background analysis
func NewSubmitContractLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SubmitContractLogic {
	return &SubmitContractLogic{
		Logger: logging.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// SubmitContract stores a processing record and queues its analysis. It
// never waits for the analysis; callers poll the contract for the result.
func (l *SubmitContractLogic) SubmitContract(req *types.SubmitContractRequest, upload *Upload) (*types.SubmitContractResponse, error) {
	ownerID, err := l.owner(req.OwnerId)
	if err != nil {
		return nil, err
	}

	filename := strings.TrimSpace(req.Filename)
	var text string
	if upload != nil {
		filename = upload.Filename
		text, err = extract.Extract(upload.Data, upload.Filename, extract.WithMaxChars(l.svcCtx.Config.Upload.MaxTextChars))
		if err != nil {
			return nil, extractError(err)
		}
	} else {
		text = strings.TrimSpace(req.Text)
		if text == "" {
			return nil, apperr.Validation("text or file is required")
		}
		if limit := l.svcCtx.Config.Upload.MaxTextChars; limit > 0 && utf8.RuneCountInString(text) > limit {
			return nil, apperr.Validation("text exceeds %d characters", limit)
		}
	}

	c, err := l.svcCtx.DB.CreateContract(l.ctx, db.CreateContractParams{
		UserID:    ownerID,
		Filename:  filename,
		InputText: text,
	})
	if err != nil {
		l.Errorf("Failed to create contract: %v", err)
		return nil, apperr.Wrap(apperr.KindPersistence, err, "")
	}

	if err := l.svcCtx.Pool.Submit(analysis.Job{ContractID: c.ID, Text: text}); err != nil {
		l.Errorf("Failed to queue contract %s: %v", c.ID, err)
		l.abandon(c.ID, err)
		return nil, apperr.Wrap(apperr.KindInternal, err, "")
	}

	l.Infof("Queued contract %s (%d chars)", c.ID, utf8.RuneCountInString(text))
	return &types.SubmitContractResponse{Id: c.ID, Status: db.ContractProcessing}, nil
}

// owner resolves whose contract this is. Only administrators may submit on
// behalf of someone else.
func (l *SubmitContractLogic) owner(requested string) (string, error) {
	p, err := middleware.RequirePrincipal(l.ctx)
	if err != nil {
		return "", err
	}
	requested = strings.TrimSpace(requested)
	if requested == "" || requested == p.UserID {
		return p.UserID, nil
	}
	if !p.IsAdmin {
		return "", apperr.Forbidden("cannot submit contracts for another user")
	}
	if _, err := l.svcCtx.DB.GetUser(l.ctx, requested); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", apperr.Validation("owner %s does not exist", requested)
		}
		return "", apperr.Wrap(apperr.KindPersistence, err, "")
	}
	return requested, nil
}

// abandon finalizes a record that could not be queued so it does not stay
// in processing.
func (l *SubmitContractLogic) abandon(id string, cause error) {
	result, err := analysis.ErrorReport(cause.Error()).Encode()
	if err == nil {
		err = l.svcCtx.DB.CompleteContract(context.WithoutCancel(l.ctx), id, db.ContractError, result)
	}
	if err != nil {
		l.Errorf("Failed to finalize unqueued contract %s: %v", id, err)
	}
}

func extractError(err error) error {
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return apperr.Validation("unsupported file type; accepted: %s", strings.Join(extract.Supported(), ", "))
	case errors.Is(err, extract.ErrExecutable):
		return apperr.Validation("executable files are not accepted")
	case errors.Is(err, extract.ErrEmpty):
		return apperr.Validation("the document has no readable text")
	}
	return apperr.Wrap(apperr.KindValidation, err, "could not read the document")
}
