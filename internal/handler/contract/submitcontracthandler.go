package contract

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/httputil"
	"github.com/sentryai/sentry/internal/logic/contract"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

// Submit a contract for background analysis. Accepts a JSON body with the
// text or a multipart form with a file field.
func SubmitContractHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, svcCtx.Config.Upload.MaxBytes)

		var (
			req    types.SubmitContractRequest
			upload *contract.Upload
			err    error
		)
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType == "multipart/form-data" {
			upload, err = readUpload(r, &req)
		} else {
			err = httputil.Parse(r, &req)
		}
		if err != nil {
			httputil.Error(w, bodyError(err, svcCtx.Config.Upload.MaxBytes))
			return
		}

		l := contract.NewSubmitContractLogic(r.Context(), svcCtx)
		resp, err := l.SubmitContract(&req, upload)
		if err != nil {
			httputil.Error(w, err)
		} else {
			httputil.Accepted(w, resp)
		}
	}
}

func readUpload(r *http.Request, req *types.SubmitContractRequest) (*contract.Upload, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, err
	}
	defer r.MultipartForm.RemoveAll()

	req.OwnerId = r.FormValue("ownerId")
	req.Text = r.FormValue("text")

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &contract.Upload{Filename: filepath.Base(header.Filename), Data: data}, nil
}

func bodyError(err error, limit int64) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperr.Validation("upload exceeds %d bytes", limit)
	}
	if apperr.KindOf(err) == apperr.KindValidation {
		return err
	}
	return apperr.Wrap(apperr.KindValidation, err, "invalid upload")
}
