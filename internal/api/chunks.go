package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/totalrecall/internal/chunker"
	"github.com/MikeSquared-Agency/totalrecall/internal/driver"
)

// maxBodyBytes caps an uploaded collection.
const maxBodyBytes = 32 << 20

// chunk handles POST /api/v1/chunks?strategy=size&max_tokens=1500. The body is
// a collection: a list of conversations or an object with a conversations field.
func (s *Server) chunk(w http.ResponseWriter, r *http.Request) {
	strategy := s.defaults.Strategy
	if name := r.URL.Query().Get("strategy"); name != "" {
		parsed, err := chunker.ParseStrategy(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		strategy = parsed
	}

	maxTokens := s.defaults.MaxTokens
	if v := r.URL.Query().Get("max_tokens"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid max_tokens %q", v))
			return
		}
		maxTokens = n
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
		return
	}

	convs, err := driver.Decode(body, driver.FormatJSON)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	source := "request:" + uuid.NewString()
	result, err := s.driver.Process(r.Context(), source, convs, strategy, maxTokens)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func statusFor(err error) int {
	var use *chunker.UnknownStrategyError
	var oe *chunker.OversizedItemError
	switch {
	case errors.As(err, &use), errors.Is(err, chunker.ErrInvalidBudget):
		return http.StatusBadRequest
	case errors.As(err, &oe):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
