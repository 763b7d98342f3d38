package media

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"wanderlust/utils"
)

const (
	FormField     = "images"
	MaxFiles      = 10
	MaxFileSize   = 10 << 20
	maxFormMemory = 32 << 20
	uploadWorkers = 3
)

type Handler struct {
	uploader Uploader
	maxWidth int
}

func NewHandler(uploader Uploader, maxWidth int) *Handler {
	return &Handler{uploader: uploader, maxWidth: maxWidth}
}

// POST /api/admin/media
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxFiles*MaxFileSize+1<<20)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File[FormField]
	switch {
	case len(files) == 0:
		utils.RespondWithError(w, http.StatusBadRequest, "no images uploaded")
		return
	case len(files) > MaxFiles:
		utils.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("at most %d images per upload", MaxFiles))
		return
	}

	prepared := make([][]byte, len(files))
	names := make([]string, len(files))
	for i, fh := range files {
		if fh.Size > MaxFileSize {
			utils.RespondWithError(w, http.StatusBadRequest, fh.Filename+": image exceeds 10 MB")
			return
		}
		f, err := fh.Open()
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "cannot open "+fh.Filename)
			return
		}
		prepared[i], err = Prepare(f, h.maxWidth)
		f.Close()
		if err != nil {
			utils.RespondWithErr(w, r, fmt.Errorf("%s: %w", fh.Filename, err))
			return
		}
		base := utils.SanitizeFilename(strings.TrimSuffix(fh.Filename, filepath.Ext(fh.Filename)))
		names[i] = base + "-" + utils.ShortRef(utils.NewID()) + ".jpg"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	urls := make([]string, len(prepared))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadWorkers)
	for i := range prepared {
		g.Go(func() error {
			url, err := h.uploader.Upload(gctx, names[i], prepared[i])
			urls[i] = url
			return err
		})
	}
	if err := g.Wait(); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}

	log.Info().Int("count", len(urls)).Msg("[Media] images uploaded")
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"urls": urls})
}
