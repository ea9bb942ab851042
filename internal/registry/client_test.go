package registry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lzjever/escn/internal/core"
)

type stubGenerator struct {
	escn        string
	err         error
	prefix, pic string
}

func (g *stubGenerator) Generate(prefix, pic string) (string, error) {
	g.prefix, g.pic = prefix, pic
	return g.escn, g.err
}

type recorded struct {
	method, path string
	header       http.Header
	body         []byte
}

type recorder struct {
	mu    sync.Mutex
	calls []recorded
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.calls...)
}

func newRegistry(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.calls = append(rec.calls, recorded{method: r.Method, path: r.URL.Path, header: r.Header.Clone(), body: b})
		rec.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:  baseURL + "/v1",
		APIKey:   "secret-key",
		PIC:      "999888777",
		CardType: "2",
		Prefix:   "1",
	}
}

func TestStudentExists(t *testing.T) {
	srv, calls := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/students/known":
			w.Write([]byte(`{"europeanStudentIdentifier":"known"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"message":"student not found"}}`))
		}
	})
	c := New(testConfig(srv.URL), nil, zap.NewNop())

	ok, err := c.StudentExists(context.Background(), "known")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.StudentExists(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, calls.all(), 2)
	first := calls.all()[0]
	assert.Equal(t, http.MethodGet, first.method)
	assert.Equal(t, "application/json", first.header.Get("Content-Type"))
	assert.Equal(t, "secret-key", first.header.Get("Key"))
}

func TestStudentExists_Failures(t *testing.T) {
	cases := map[string]func(w http.ResponseWriter, r *http.Request){
		"malformed body": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>oops</html>`))
		},
		"server error without error field": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{}`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv, _ := newRegistry(t, handler)
			c := New(testConfig(srv.URL), nil, zap.NewNop())

			_, err := c.StudentExists(context.Background(), "s-1")
			assert.True(t, core.IsCode(err, core.ErrRegistryRequestFailed), "got %v", err)
		})
	}
}

func TestStudentExists_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(testConfig(url), nil, zap.NewNop())
	_, err := c.StudentExists(context.Background(), "s-1")
	assert.True(t, core.IsCode(err, core.ErrRegistryRequestFailed), "got %v", err)
}

func TestStudentExists_DoesNotFollowRedirects(t *testing.T) {
	srv, calls := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	})
	c := New(testConfig(srv.URL), nil, zap.NewNop())

	_, err := c.StudentExists(context.Background(), "s-1")
	assert.Error(t, err)
	assert.Len(t, calls.all(), 1)
}

func TestStudentCardNumber(t *testing.T) {
	srv, calls := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"student":{"europeanStudentIdentifier":"a"},"europeanStudentCardNumber":"escn-a","cardType":"1"},
			{"student":{"europeanStudentIdentifier":"b"},"europeanStudentCardNumber":"escn-b","cardType":"2"}
		]`))
	})
	c := New(testConfig(srv.URL), nil, zap.NewNop())

	card, found, err := c.StudentCardNumber(context.Background(), "b")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "escn-b", card.ESCN)
	assert.Equal(t, "2", card.CardType)

	_, found, err = c.StudentCardNumber(context.Background(), "z")
	require.NoError(t, err)
	assert.False(t, found)

	assert.Equal(t, "/v1/cards", calls.all()[0].path)
}

func TestStudentCardNumber_Malformed(t *testing.T) {
	srv, _ := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"not a list"}`))
	})
	c := New(testConfig(srv.URL), nil, zap.NewNop())

	_, _, err := c.StudentCardNumber(context.Background(), "b")
	assert.True(t, core.IsCode(err, core.ErrRegistryRequestFailed), "got %v", err)
}

func TestCreateStudent(t *testing.T) {
	srv, calls := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{}`))
	})
	c := New(testConfig(srv.URL), nil, zap.NewNop())

	err := c.CreateStudent(context.Background(), core.Student{
		StudentID: "urn:schac:personalUniqueCode:int:esi:fr:123",
		Email:     "jane@example.org",
		Name:      "Jane Doe",
	})
	require.NoError(t, err)

	call := calls.all()[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/v1/students/", call.path)

	var body map[string]string
	require.NoError(t, json.Unmarshal(call.body, &body))
	assert.Equal(t, map[string]string{
		"picInstitutionCode":        "999888777",
		"europeanStudentIdentifier": "urn:schac:personalUniqueCode:int:esi:fr:123",
		"emailAddress":              "jane@example.org",
		"expiryDate":                core.DefaultExpiryDate,
		"name":                      "Jane Doe",
	}, body)
}

func TestCreateStudent_Rejected(t *testing.T) {
	srv, _ := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"emailAddress is invalid"}`))
	})
	c := New(testConfig(srv.URL), nil, zap.NewNop())

	err := c.CreateStudent(context.Background(), core.Student{StudentID: "s-1"})
	require.Error(t, err)
	assert.True(t, core.IsCode(err, core.ErrRegistryRequestFailed))
	assert.Contains(t, err.Error(), "emailAddress is invalid")
}

func TestCreateStudentCard(t *testing.T) {
	srv, calls := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{}`))
	})
	gen := &stubGenerator{escn: "1d3a2b40-5e6f-11ee-8123-001999888777"}
	c := New(testConfig(srv.URL), gen, zap.NewNop())

	escn, err := c.CreateStudentCard(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, gen.escn, escn)
	assert.Equal(t, "1", gen.prefix)
	assert.Equal(t, "999888777", gen.pic)

	call := calls.all()[0]
	assert.Equal(t, "/v1/students/s-1/cards", call.path)

	var body map[string]string
	require.NoError(t, json.Unmarshal(call.body, &body))
	assert.Equal(t, gen.escn, body["europeanStudentCardNumber"])
	assert.Equal(t, "2", body["cardType"])
}

func TestCreateStudentCard_GeneratorError(t *testing.T) {
	srv, calls := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	gen := &stubGenerator{err: core.NewAppError(core.ErrInvalidPIC, "bad pic")}
	c := New(testConfig(srv.URL), gen, zap.NewNop())

	_, err := c.CreateStudentCard(context.Background(), "s-1")
	assert.True(t, core.IsCode(err, core.ErrInvalidPIC))
	assert.Empty(t, calls.all())
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{Prefix: "1", PIC: "123456789"}.Validate())
	assert.True(t, core.IsCode(Config{Prefix: "x", PIC: "123456789"}.Validate(), core.ErrInvalidPrefix))
	assert.True(t, core.IsCode(Config{Prefix: "1", PIC: "12"}.Validate(), core.ErrInvalidPIC))
}

func TestRegisterCard_CardTypeOverride(t *testing.T) {
	srv, calls := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	c := New(testConfig(srv.URL), nil, zap.NewNop())

	require.NoError(t, c.RegisterCard(context.Background(), "s-1", "escn-1", "3"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(calls.all()[0].body, &body))
	assert.Equal(t, "3", body["cardType"])
}
