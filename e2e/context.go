package e2e

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestContext carries per-scenario state: who the caller is, the case key it
// holds, and the last response.
type TestContext struct {
	BaseURL    string
	SigningKey string
	Audience   string
	HTTPClient *http.Client

	issuer  string
	subject string
	role    string
	caseKey []byte

	LastStatus int
	LastBody   []byte
}

// NewTestContext builds a context against a running server.
func NewTestContext(baseURL, signingKey, audience string) *TestContext {
	return &TestContext{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		SigningKey: signingKey,
		Audience:   audience,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset clears scenario state between scenarios.
func (tc *TestContext) Reset() {
	tc.issuer, tc.subject, tc.role = "", "", ""
	tc.caseKey = nil
	tc.LastStatus = 0
	tc.LastBody = nil
}

func (tc *TestContext) ActAs(issuer, subject, role string) {
	tc.issuer, tc.subject, tc.role = issuer, subject, role
}

func (tc *TestContext) HoldCaseKey(key []byte) {
	tc.caseKey = key
}

func (tc *TestContext) DropCaseKey() {
	tc.caseKey = nil
}

func (tc *TestContext) POST(path string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	return tc.do(http.MethodPost, path, reader)
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) Status() int {
	return tc.LastStatus
}

// GetResponseField returns a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	var body map[string]interface{}
	if err := json.Unmarshal(tc.LastBody, &body); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w (body: %s)", err, tc.LastBody)
	}
	v, ok := body[field]
	if !ok {
		return nil, fmt.Errorf("response has no field %q (body: %s)", field, tc.LastBody)
	}
	return v, nil
}

func (tc *TestContext) ResponseBody() []byte {
	return tc.LastBody
}

func (tc *TestContext) do(method, path string, body io.Reader) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, tc.BaseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.issuer != "" {
		token, err := tc.token()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if tc.caseKey != nil {
		req.Header.Set("X-Transient-Case-Key", base64.StdEncoding.EncodeToString(tc.caseKey))
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.LastStatus = resp.StatusCode
	tc.LastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) token() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": tc.issuer,
		"sub": tc.subject,
		"aud": tc.Audience,
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
	}
	if tc.role != "" {
		claims["role"] = tc.role
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(tc.SigningKey))
}
