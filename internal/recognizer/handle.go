package recognizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rbright/hark/internal/ipc"
)

// Handle serves IPC commands for a running listener.
func (r *Recognizer) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return r.respond(true, fmt.Sprintf("%d commands", len(r.table.Snapshot())))
	case ipc.CommandStart:
		if err := r.Start(ctx); err != nil {
			return r.fail(err)
		}
		return r.respond(true, "listening")
	case ipc.CommandAbort:
		if err := r.Abort(); err != nil {
			return r.fail(err)
		}
		return r.respond(true, "aborted")
	case ipc.CommandHear:
		if len(req.Args) == 0 {
			return r.fail(fmt.Errorf("hear requires at least one candidate"))
		}
		res := r.Hear(req.Args...)
		resp := r.respond(true, "no match")
		if res.Matched {
			resp.Message = res.Candidate
			resp.Matched = res.Command
			resp.Params = res.Params
		}
		if res.Err != nil {
			resp.OK = false
			resp.Error = res.Err.Error()
		}
		return resp
	case ipc.CommandLanguage:
		if len(req.Args) == 0 || strings.TrimSpace(req.Args[0]) == "" {
			return r.respond(true, r.Language())
		}
		if err := r.SetLanguage(ctx, req.Args[0]); err != nil {
			return r.fail(err)
		}
		return r.respond(true, "language set")
	default:
		return r.fail(fmt.Errorf("unknown command: %s", req.Command))
	}
}

func (r *Recognizer) respond(ok bool, message string) ipc.Response {
	return ipc.Response{
		OK:       ok,
		State:    string(r.ctrl.State()),
		Language: r.Language(),
		Message:  message,
	}
}

func (r *Recognizer) fail(err error) ipc.Response {
	resp := r.respond(false, "")
	resp.Error = err.Error()
	return resp
}
