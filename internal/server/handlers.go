package server

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/bitmark-inc/logger"
	"github.com/google/uuid"

	"jsonpdb/internal/shared"
)

type API struct {
	Logic   *Logic
	MaxBody int64
	Metrics *Metrics
	Log     *logger.L
}

// Routes mounts the API at prefix ("" or "/jsonp_db/" style).
func (a *API) Routes(prefix string) http.Handler {
	mux := http.NewServeMux()
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		mux.Handle("/", a)
		return mux
	}
	mux.Handle(prefix+"/", http.StripPrefix(prefix, a))
	return mux
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	w.Header().Set(shared.HeaderRequestID, reqID)

	// the body is read exactly once, before anything else looks at r
	form, formErr := readForm(r, a.MaxBody)
	a.Log.Infof("[%s] handling request: %s %q with query_string: %q, form: %v",
		reqID, r.Method, r.URL.Path, r.URL.RawQuery, form.Kwargs)

	var callback string
	result, err := func() (res Result, err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v\n%s", p, debug.Stack())
			}
		}()
		if formErr != nil {
			return Result{}, formErr
		}
		query, err := ParseQuery(r.URL.RawQuery)
		if err != nil {
			return Result{}, err
		}
		if cb := query.Pop(shared.ParamCallback); cb != "" {
			if !validCallback(cb) {
				return Result{}, badSyntax("Invalid callback name: %q", cb)
			}
			callback = cb
		}
		return a.Logic.Handle(r.URL.Path, query, form)
	}()
	if err != nil {
		a.writeError(w, reqID, callback, classify(err))
		return
	}

	a.Log.Infof("[%s] %s key=%q -> 200", reqID, result.State, result.Key)
	a.Metrics.observe(result.State, http.StatusOK)
	w.Header().Set("Content-Type", shared.ContentTypeJavaScript)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(renderSuccess(callback, result.Values)))
}

func (a *API) writeError(w http.ResponseWriter, reqID, callback string, e httpError) {
	if e.Status() >= http.StatusInternalServerError {
		a.Log.Errorf("[%s] %s (%s)\n%s", reqID, e.FullMessage(), e.Kind, debug.Stack())
	} else {
		a.Log.Warnf("[%s] %s (%s)", reqID, e.FullMessage(), e.Kind)
	}
	a.Metrics.observe(StateRejected, e.Status())

	body, contentType := renderError(callback, e)
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(e.Status())
	_, _ = w.Write([]byte(body))
}
