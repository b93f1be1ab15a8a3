package middleware

import (
	"encoding/base64"
	"net/http"

	dErrors "chainguard/pkg/domain-errors"
	"chainguard/pkg/platform/httputil"
	"chainguard/pkg/requestcontext"
)

// CaseKeyHeader carries the base64 encoded transient case key.
const CaseKeyHeader = "X-Transient-Case-Key"

// CaseKey moves the transient case key from its header into the request
// context and strips the header so nothing downstream can log it. Requests
// without the header pass through; operations that need the key fail later
// with key_unavailable.
func CaseKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(CaseKeyHeader)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		r.Header.Del(CaseKeyHeader)

		key, err := decodeKey(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, CaseKeyHeader+" must be base64 encoded"))
			return
		}
		ctx := requestcontext.WithCaseKey(r.Context(), key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func decodeKey(raw string) ([]byte, error) {
	if key, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return key, nil
	}
	return base64.RawURLEncoding.DecodeString(raw)
}
