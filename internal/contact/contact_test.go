package contact

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/rollbook/internal/errs"
)

type fakeSubmitter struct {
	got   []Form
	reply Result
	err   error
}

func (f *fakeSubmitter) Submit(_ context.Context, form Form) (Result, error) {
	f.got = append(f.got, form)
	return f.reply, f.err
}

func validForm() Form {
	return Form{Name: "Ann", Email: "ann@example.com", Subject: "Hi", Message: "Hello"}
}

func TestService_Send(t *testing.T) {
	cases := []struct {
		name  string
		sub   *fakeSubmitter
		want  Result
		calls int
	}{
		{"delivered", &fakeSubmitter{reply: Result{Success: true, Message: MsgReceived}}, Result{true, MsgReceived}, 1},
		{"transport failure", &fakeSubmitter{err: errs.ErrTransport}, Result{false, MsgConnectFailed}, 1},
		{"rejected", &fakeSubmitter{reply: Result{Success: false, Message: "nope"}}, Result{false, MsgSomethingFailed}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewService(tc.sub, zaptest.NewLogger(t))
			got, err := s.Send(context.Background(), validForm())
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
			require.Len(t, tc.sub.got, tc.calls)
		})
	}
}

func TestService_Send_Validation(t *testing.T) {
	sub := &fakeSubmitter{}
	s := NewService(sub, nil)

	bad := []Form{
		{Email: "a@b.c", Subject: "s", Message: "m"},
		{Name: "n", Email: "not-an-email", Subject: "s", Message: "m"},
		{Name: "n", Email: "a@b.c", Subject: "  ", Message: "m"},
		{Name: "n", Email: "a@b.c", Subject: "s"},
	}
	for _, f := range bad {
		_, err := s.Send(context.Background(), f)
		require.ErrorIs(t, err, errs.ErrInvalidInput, "%+v", f)
	}
	require.Empty(t, sub.got)
}

func TestSimulated(t *testing.T) {
	res, err := Simulated{Delay: time.Millisecond}.Submit(context.Background(), validForm())
	require.NoError(t, err)
	require.Equal(t, Result{Success: true, Message: MsgReceived}, res)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Simulated{Delay: time.Hour}.Submit(ctx, validForm())
	require.ErrorIs(t, err, errs.ErrTransport)
	require.ErrorIs(t, err, context.Canceled)
}

func TestHTTP_Submit(t *testing.T) {
	var (
		mu          sync.Mutex
		got         Form
		contentType string
		decodeErr   error
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		contentType = r.Header.Get("Content-Type")
		decodeErr = json.NewDecoder(r.Body).Decode(&got)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"success":true,"message":"ok"}`))
	}))
	defer srv.Close()

	res, err := NewHTTP(srv.URL).Submit(context.Background(), validForm())
	require.NoError(t, err)
	require.Equal(t, Result{Success: true, Message: "ok"}, res)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "application/json", contentType)
	require.NoError(t, decodeErr)
	require.Equal(t, validForm(), got)
}

func TestHTTP_Submit_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	_, err := NewHTTP(srv.URL).Submit(context.Background(), validForm())
	require.ErrorIs(t, err, errs.ErrTransport)

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer garbage.Close()
	_, err = NewHTTP(garbage.URL).Submit(context.Background(), validForm())
	require.ErrorIs(t, err, errs.ErrTransport)

	// end to end through the service: a dead endpoint reads as a connect failure
	dead := httptest.NewServer(http.NotFoundHandler())
	url := dead.URL
	dead.Close()
	res, err := NewService(NewHTTP(url), nil).Send(context.Background(), validForm())
	require.NoError(t, err)
	require.Equal(t, Result{false, MsgConnectFailed}, res)
	require.False(t, errors.Is(err, errs.ErrTransport))
}
