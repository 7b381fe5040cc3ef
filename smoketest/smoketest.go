package smoketest

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	httpcmn "github.com/aukilabs/hagall-spatial/http"
	"github.com/aukilabs/hagall-spatial/messages"
	"github.com/aukilabs/hagall-spatial/quadtree"
	hwebsocket "github.com/aukilabs/hagall-spatial/websocket"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"

	ErrTypeUnexpectedResponse = "smoke_test_unexpected_response"

	defaultTimeout = time.Second * 10
)

// Request is the body of a smoke test request.
type Request struct {
	// The server to test.
	Endpoint string `json:"endpoint"`

	// The auth token presented to the tested server.
	Token string `json:"token,omitempty"`

	Timeout time.Duration `json:"timeout,omitempty"`
}

type Results struct {
	FromEndpoint    string  `json:"from_endpoint"`
	ToEndpoint      string  `json:"to_endpoint"`
	Status          string  `json:"status"`
	LatencyMilliSec float64 `json:"latency_ms"`
	Error           string  `json:"error,omitempty"`
}

type RunOptions struct {
	FromEndpoint string
	ToEndpoint   string
	Token        string
	Timeout      time.Duration
}

// RunSmokeTest connects to a server, creates and joins a space, puts an
// entity and checks that a range query returns it.
func RunSmokeTest(ctx context.Context, opts RunOptions) (Results, error) {
	res := Results{
		FromEndpoint: opts.FromEndpoint,
		ToEndpoint:   opts.ToEndpoint,
		Status:       StatusFailed,
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := dial(ctx, opts)
	if err != nil {
		res.Error = err.Error()
		return res, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	latency, err := run(conn, timeout)
	if err != nil {
		err = errors.New("smoke test failed").
			WithTag("to_endpoint", opts.ToEndpoint).
			Wrap(err)
		res.Error = err.Error()
		return res, err
	}

	res.Status = StatusSuccess
	res.LatencyMilliSec = float64(latency) / float64(time.Millisecond)
	return res, nil
}

func dial(ctx context.Context, opts RunOptions) (*websocket.Conn, error) {
	origin := opts.FromEndpoint
	if origin == "" {
		origin = "http://localhost"
	}

	config, err := websocket.NewConfig(websocketURL(opts.ToEndpoint), origin)
	if err != nil {
		return nil, errors.New("creating websocket config failed").
			WithTag("to_endpoint", opts.ToEndpoint).
			Wrap(err)
	}

	config.Header.Set(httpcmn.HeaderClientID, "smoke-test-"+uuid.NewString())
	if opts.Token != "" {
		config.Header.Set(httpcmn.HeaderAuthorization, "Bearer "+opts.Token)
	}

	conn, err := config.DialContext(ctx)
	if err != nil {
		return nil, errors.New("dialing server failed").
			WithTag("to_endpoint", opts.ToEndpoint).
			Wrap(err)
	}
	return conn, nil
}

func run(conn *websocket.Conn, timeout time.Duration) (time.Duration, error) {
	start := time.Now()

	var ping messages.PingResponse
	if err := roundtrip(conn, 1, &messages.PingRequest{RequestID: 1}, &ping, timeout); err != nil {
		return 0, err
	}
	latency := time.Since(start)

	bounds := quadtree.NewRectangle(0, 0, 100, 100)

	var created messages.SpaceCreateResponse
	if err := roundtrip(conn, 2, &messages.SpaceCreateRequest{
		RequestID: 2,
		Bounds:    bounds,
	}, &created, timeout); err != nil {
		return 0, err
	}

	var joined messages.SpaceJoinResponse
	if err := roundtrip(conn, 3, &messages.SpaceJoinRequest{
		RequestID: 3,
		SpaceID:   created.SpaceID,
	}, &joined, timeout); err != nil {
		return 0, err
	}

	if joined.SpaceUUID != created.SpaceUUID {
		return 0, errors.New("joined space is not the created one").
			WithType(ErrTypeUnexpectedResponse).
			WithTag("created_space_uuid", created.SpaceUUID).
			WithTag("joined_space_uuid", joined.SpaceUUID)
	}

	label := uuid.NewString()

	var put messages.EntityPutResponse
	if err := roundtrip(conn, 4, &messages.EntityPutRequest{
		RequestID: 4,
		Label:     label,
		Position:  quadtree.NewPoint(50, 50),
	}, &put, timeout); err != nil {
		return 0, err
	}

	var query messages.QueryResponse
	if err := roundtrip(conn, 5, &messages.QueryRequest{
		RequestID: 5,
		Range:     quadtree.NewRectangle(40, 40, 20, 20),
	}, &query, timeout); err != nil {
		return 0, err
	}

	for _, e := range query.Entities {
		if e.ID == put.EntityID && e.Label == label {
			return latency, nil
		}
	}

	return 0, errors.New("put entity not found by query").
		WithType(ErrTypeUnexpectedResponse).
		WithTag("entity_id", put.EntityID).
		WithTag("result_count", len(query.Entities))
}

func roundtrip(conn *websocket.Conn, requestID uint32, req messages.ProtoMsg, res messages.ProtoMsg, timeout time.Duration) error {
	msg, err := hwebsocket.Roundtrip(conn, req, requestID, timeout)
	if err != nil {
		return err
	}

	if msg.Type == messages.MsgTypeErrorResponse {
		var errRes messages.ErrorResponse
		msg.DataTo(&errRes)

		return errors.New("server responded with an error").
			WithType(ErrTypeUnexpectedResponse).
			WithTag("request_type", req.GetType().String()).
			WithTag("error_code", uint32(errRes.Code))
	}
	return msg.DataTo(res)
}

func websocketURL(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	default:
		return endpoint
	}
}

type Options struct {
	// The public endpoint of the server running the smoke tests.
	Endpoint string

	SendResult func(context.Context, Results) error
}

type testCtxKey string

var testCtxKeyValue testCtxKey = "test-context"

type testContext struct {
	context.Context
	Cancel func()
}

// HandleSmokeTest runs a smoke test against the requested endpoint. The test
// runs in the background and its results are passed to opts.SendResult.
func HandleSmokeTest(ctx context.Context, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			httpcmn.InternalServerError(w, errors.New("reading body failed").Wrap(err))
			return
		}

		var req Request
		if err := json.Unmarshal(b, &req); err != nil || req.Endpoint == "" {
			httpcmn.BadRequest(w, httpcmn.ErrBadRequest)
			return
		}

		go func() {
			defer func() {
				// Signals tests that the smoke test is over.
				if tctx := ctx.Value(testCtxKeyValue); tctx != nil {
					testCtx := tctx.(testContext)
					if testCtx.Cancel != nil {
						testCtx.Cancel()
					}
				}
			}()

			res, err := RunSmokeTest(ctx, RunOptions{
				FromEndpoint: opts.Endpoint,
				ToEndpoint:   req.Endpoint,
				Token:        req.Token,
				Timeout:      req.Timeout,
			})
			if err != nil {
				logs.Warn(err)
			}

			if err := opts.SendResult(ctx, res); err != nil {
				logs.WithTag("from_endpoint", opts.Endpoint).
					WithTag("to_endpoint", req.Endpoint).
					Warn(errors.New("sending smoke test result failed").Wrap(err))
			}
		}()

		w.WriteHeader(http.StatusOK)
	}
}

// LogResult is a SendResult function that logs the results.
func LogResult(_ context.Context, res Results) error {
	logs.WithTag("from_endpoint", res.FromEndpoint).
		WithTag("to_endpoint", res.ToEndpoint).
		WithTag("status", res.Status).
		WithTag("latency_ms", res.LatencyMilliSec).
		Info("smoke test done")
	return nil
}
