package mainboilerplate

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// DiagnosticsConfig configures pull-based application metrics and diagnostics.
type DiagnosticsConfig struct {
	Port uint16 `long:"port" env:"PORT" description:"Port on which to serve /debug/metrics and /debug/ready. Diagnostics are not served if zero"`
}

// DiagnosticsHandler returns an http.Handler which serves Prometheus
// metrics at /debug/metrics, and a liveness check at /debug/ready.
func DiagnosticsHandler() http.Handler {
	var mux = http.NewServeMux()

	mux.HandleFunc("/debug/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/debug/metrics", promhttp.Handler())

	return mux
}

// InitDiagnosticsAndRecover begins serving the DiagnosticsHandler if a Port
// is configured. It returns a closure which should be deferred, which logs
// a recovered panic before re-raising it.
func InitDiagnosticsAndRecover(cfg DiagnosticsConfig) func() {
	if cfg.Port != 0 {
		var addr = net.JoinHostPort("", strconv.Itoa(int(cfg.Port)))
		var ln, err = net.Listen("tcp", addr)
		Must(err, "failed to bind diagnostics port", "addr", addr)

		log.WithField("addr", ln.Addr()).Info("serving diagnostics")
		go func() {
			if err := http.Serve(ln, DiagnosticsHandler()); err != nil {
				log.WithField("err", err).Warn("diagnostics server stopped")
			}
		}()
	}

	return func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "PANIC: %+v\n", r)
			panic(r)
		}
	}
}

// Must panics if |err| is non-nil, supplying |msg| and |extra| as
// formatter and fields of the generated panic.
func Must(err error, msg string, extra ...interface{}) {
	if err == nil {
		return
	}
	var f = log.Fields{"err": err}
	for i := 0; i+1 < len(extra); i += 2 {
		f[extra[i].(string)] = extra[i+1]
	}
	log.WithFields(f).Panic(msg)
}
