package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/Baaaaam/gpso"
	"github.com/Baaaaam/gpso/bench"
	"github.com/Baaaaam/gpso/metrics"
	"github.com/Baaaaam/gpso/rangeset"
	"github.com/Baaaaam/gpso/search"
)

type options struct {
	data        string
	class       int
	problem     string
	db          string
	metricsAddr string
	logLevel    string
}

func run(w io.Writer, cfg gpso.Config, o options) error {
	log, err := gpso.NewLogger(o.logLevel)
	if err != nil {
		return err
	}

	ev, data, names, err := load(o)
	if err != nil {
		return err
	}

	opts := []search.Option{search.WithLogger(log)}

	if o.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		p, err := metrics.NewPrometheus(reg)
		if err != nil {
			return err
		}
		srv := serveMetrics(o.metricsAddr, reg, log)
		defer shutdown(srv, log)
		opts = append(opts, search.WithMetrics(p))
	}

	if o.db != "" {
		db, err := sql.Open("sqlite", o.db)
		if err != nil {
			return err
		}
		defer db.Close()
		db.SetMaxOpenConns(1)
		opts = append(opts, search.WithDB(db))
	}

	s, err := search.New(cfg, opts...)
	if err != nil {
		return err
	}
	r, err := s.Search(gpso.NewEvalLogger(ev, log), data)
	if err != nil {
		return err
	}

	fmt.Fprint(w, r.Report)
	fmt.Fprint(w, selected(r.Attributes, names))
	return nil
}

// load returns the evaluator and dataset named by o together with the
// attribute names, if known.
func load(o options) (gpso.SubsetEvaluator, gpso.Dataset, []string, error) {
	switch {
	case o.problem != "" && o.data != "":
		return nil, nil, nil, errors.New("--problem and --data are exclusive")
	case o.problem != "":
		var names []string
		for _, p := range bench.AllProblems {
			names = append(names, p.Name())
			if strings.EqualFold(p.Name(), o.problem) {
				return p, p, nil, nil
			}
		}
		return nil, nil, nil, fmt.Errorf("unknown problem %q (have %v)", o.problem, strings.Join(names, ", "))
	case o.data != "":
		f, err := os.Open(o.data)
		if err != nil {
			return nil, nil, nil, err
		}
		defer f.Close()
		tbl, err := bench.ReadCSV(f, o.class-1)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%v: %w", o.data, err)
		}
		cfs, err := bench.NewCFS(tbl)
		if err != nil {
			return nil, nil, nil, err
		}
		return cfs, tbl, tbl.Names, nil
	}
	return nil, nil, nil, errors.New("one of --data or --problem is required")
}

// selected lists the chosen attributes the way the report numbers them.
func selected(attrs []int, names []string) string {
	var b strings.Builder
	head := "Selected attributes: "
	fmt.Fprintf(&b, "\n%v%v : %v\n", head, rangeset.Format(attrs), len(attrs))
	for _, i := range attrs {
		name := fmt.Sprintf("a%v", i+1)
		if i < len(names) {
			name = names[i]
		}
		fmt.Fprintf(&b, "%v%v\n", strings.Repeat(" ", len(head)), name)
	}
	return b.String()
}

func serveMetrics(addr string, reg *prometheus.Registry, log logrus.FieldLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	log.WithField("addr", addr).Info("serving metrics")
	return srv
}

func shutdown(srv *http.Server, log logrus.FieldLogger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("metrics server shutdown")
	}
}
