package bridge

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"rangedl/internal/httpclient"
)

// starter is the subset of manager.Manager the bridge needs.
type starter interface {
	Start(ctx context.Context, url string, auth httpclient.Auth) (string, error)
}

// Serve reads frames from r until EOF, forwarding each successfully
// parsed request to mgr.Start and writing a Response frame to w. A
// malformed frame gets `{success:false, message:"Invalid message
// format"}` and the loop continues; EOF terminates the loop cleanly
// (matching scenario 6 of spec.md §8: "EOF closes cleanly with exit
// status 0" — Serve simply returns nil, leaving exit-code handling to the
// caller).
func Serve(r io.Reader, w io.Writer, mgr starter, log *slog.Logger) error {
	for {
		req, err := ReadFrame(r)
		if err != nil {
			if IsParseError(err) {
				msg := "Invalid message format"
				if writeErr := WriteFrame(w, Response{Success: false, Message: &msg}); writeErr != nil {
					return writeErr
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		auth := httpclient.Auth{}
		if req.Cookies != nil {
			auth.Cookies = *req.Cookies
		}
		if req.Referrer != nil {
			auth.Referrer = *req.Referrer
		}
		if req.UserAgent != nil {
			auth.UserAgent = *req.UserAgent
		}

		_, startErr := mgr.Start(context.Background(), req.URL, auth)
		if startErr != nil {
			msg := startErr.Error()
			if err := WriteFrame(w, Response{Success: false, Message: &msg}); err != nil {
				return err
			}
			if log != nil {
				log.Error("bridge start failed", slog.String("error", startErr.Error()))
			}
			continue
		}
		if err := WriteFrame(w, Response{Success: true}); err != nil {
			return err
		}
	}
}
