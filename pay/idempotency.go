package pay

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"wanderlust/db"
	"wanderlust/models"
	"wanderlust/utils"
)

const idempotencyTTL = 24 * time.Hour

// IdempotencyStore reserves keys and keeps the first response per key.
type IdempotencyStore interface {
	// Reserve inserts rec. It returns false when the key already exists.
	Reserve(ctx context.Context, rec *models.IdempotencyRecord) (bool, error)
	Get(ctx context.Context, key string) (*models.IdempotencyRecord, error)
	SaveResponse(ctx context.Context, key string, resp models.IdempotencyResponse) error
	Release(ctx context.Context, key string) error
}

type MongoIdempotencyStore struct {
	coll *mongo.Collection
}

func NewMongoIdempotencyStore(coll *mongo.Collection) *MongoIdempotencyStore {
	return &MongoIdempotencyStore{coll: coll}
}

func (s *MongoIdempotencyStore) Reserve(ctx context.Context, rec *models.IdempotencyRecord) (bool, error) {
	_, err := s.coll.InsertOne(ctx, rec)
	if db.IsDuplicateKey(err) {
		return false, nil
	}
	return err == nil, err
}

func (s *MongoIdempotencyStore) Get(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	var rec models.IdempotencyRecord
	if err := s.coll.FindOne(ctx, bson.M{"key": key}).Decode(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *MongoIdempotencyStore) SaveResponse(ctx context.Context, key string, resp models.IdempotencyResponse) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"key": key}, bson.M{"$set": bson.M{"response": resp}})
	return err
}

func (s *MongoIdempotencyStore) Release(ctx context.Context, key string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"key": key})
	return err
}

func computeRequestHash(r *http.Request, bodyBytes []byte, userID string) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + ":" + userID + ":"))
	h.Write(bodyBytes)
	return hex.EncodeToString(h.Sum(nil))
}

// CaptureResponseWriter wraps http.ResponseWriter to capture status and body.
type CaptureResponseWriter struct {
	w           http.ResponseWriter
	statusCode  int
	buf         bytes.Buffer
	wroteHeader bool
}

func NewCaptureResponseWriter(w http.ResponseWriter) *CaptureResponseWriter {
	return &CaptureResponseWriter{w: w, statusCode: http.StatusOK}
}

func (c *CaptureResponseWriter) Header() http.Header {
	return c.w.Header()
}

func (c *CaptureResponseWriter) WriteHeader(statusCode int) {
	if !c.wroteHeader {
		c.statusCode = statusCode
		c.w.WriteHeader(statusCode)
		c.wroteHeader = true
	}
}

func (c *CaptureResponseWriter) Write(b []byte) (int, error) {
	c.buf.Write(b)
	return c.w.Write(b)
}

func (c *CaptureResponseWriter) Status() int {
	return c.statusCode
}

func (c *CaptureResponseWriter) BodyBytes() []byte {
	return c.buf.Bytes()
}

// Idempotent replays the first response for a repeated Idempotency-Key.
//   - no header: pass-through
//   - new key: run next and store its response; 5xx responses release the key
//     so the client can retry
//   - known key, different request: 409
//   - known key, stored response: replay it
//   - known key, still running: 409
func Idempotent(store IdempotencyStore, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		key := r.Header.Get("Idempotency-Key")
		if key == "" {
			next(w, r, ps)
			return
		}

		userID := utils.GetUserIDFromRequest(r)

		bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		reqHash := computeRequestHash(r, bodyBytes, userID)
		now := time.Now().UTC()
		rec := &models.IdempotencyRecord{
			Key:         userID + ":" + key,
			Method:      r.Method,
			Path:        r.URL.Path,
			UserID:      userID,
			RequestHash: reqHash,
			CreatedAt:   now,
			ExpiresAt:   now.Add(idempotencyTTL),
		}

		ctx := r.Context()
		fresh, err := store.Reserve(ctx, rec)
		if err != nil {
			log.Error().Err(err).Msg("[Idempotency] reserve failed")
			utils.RespondWithError(w, http.StatusInternalServerError, "idempotency lookup error")
			return
		}

		if fresh {
			crw := NewCaptureResponseWriter(w)
			next(crw, r, ps)

			// the handler's ctx may be done by now
			bg, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if crw.Status() >= 500 {
				if err := store.Release(bg, rec.Key); err != nil {
					log.Warn().Err(err).Str("key", key).Msg("[Idempotency] release failed")
				}
				return
			}
			resp := models.IdempotencyResponse{Status: crw.Status(), Body: crw.BodyBytes()}
			if err := store.SaveResponse(bg, rec.Key, resp); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("[Idempotency] save failed")
			}
			return
		}

		existing, err := store.Get(ctx, rec.Key)
		if err != nil {
			log.Error().Err(err).Msg("[Idempotency] lookup failed")
			utils.RespondWithError(w, http.StatusInternalServerError, "idempotency lookup error")
			return
		}
		if existing.RequestHash != reqHash {
			utils.RespondWithError(w, http.StatusConflict, "idempotency-key conflict")
			return
		}
		if existing.Response == nil {
			utils.RespondWithError(w, http.StatusConflict, "request with this idempotency-key is still in progress")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(existing.Response.Status)
		w.Write(existing.Response.Body)
	}
}
