package node

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/andydunstall/lattice/pkg/log"
	"github.com/andydunstall/lattice/pkg/protocol"
)

// reader reads line-delimited messages from the input.
//
// Lines that can't be parsed as a message are skipped.
type reader struct {
	r *bufio.Reader

	metrics *Metrics

	logger log.Logger
}

func newReader(r io.Reader, metrics *Metrics, logger log.Logger) *reader {
	return &reader{
		r:       bufio.NewReader(r),
		metrics: metrics,
		logger:  logger,
	}
}

// Run reads messages until the input is closed, publishing each to out. out
// is closed when Run returns.
func (r *reader) Run(ctx context.Context, out chan<- *protocol.Message) error {
	defer close(out)

	for {
		line, err := r.r.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			m, parseErr := protocol.ParseMessage(line)
			if parseErr != nil {
				r.metrics.LinesSkipped.Inc()
				r.logger.Debug("skipping line", zap.Error(parseErr))
			} else {
				select {
				case out <- m:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				r.logger.Info("input closed")
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
	}
}
