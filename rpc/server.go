// Package rpc exposes a Reflector over JSON-RPC 2.0.
//
// Methods:
//
//	bridge/serialize {ref, maxDepth, recursive}           -> {member, digest, diagnostics}
//	bridge/populate  {ref, member, maxDepth, ifMatch}     -> {ok, changed, member, digest, patch, diagnostics}
//	bridge/schema    {typeName}                  -> JSON Schema
//	bridge/types                                 -> [typeName]
//	bridge/resolve   {ref}                       -> reference descriptor
//
// A ref is the textual form accepted by reference.Parse, e.g. "World/Player",
// "#12" or "asset:Assets/Hero.mat".
//
// A digest identifies the content of a serialized member.  A populate
// carrying ifMatch fails with CodeConflict unless the target still
// serializes to that digest.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/signadot/objbridge/diag"
	"github.com/signadot/objbridge/reference"
	"github.com/signadot/objbridge/reflector"
	"github.com/signadot/objbridge/wire"
	"go.lsp.dev/jsonrpc2"
)

const (
	MethodSerialize = "bridge/serialize"
	MethodPopulate  = "bridge/populate"
	MethodSchema    = "bridge/schema"
	MethodTypes     = "bridge/types"
	MethodResolve   = "bridge/resolve"
)

// CodeConflict is returned by populate when ifMatch is stale.
const CodeConflict jsonrpc2.Code = -32001

var (
	// errParams marks errors caused by the request rather than the host.
	errParams   = errors.New("invalid params")
	errConflict = errors.New("target changed")
)

type SerializeParams struct {
	Ref       string `json:"ref"`
	MaxDepth  int    `json:"maxDepth,omitempty"`
	Recursive *bool  `json:"recursive,omitempty"`
}

type SerializeResult struct {
	Member      *wire.Member      `json:"member"`
	Digest      string            `json:"digest"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
}

type PopulateParams struct {
	Ref      string       `json:"ref"`
	Member   *wire.Member `json:"member"`
	MaxDepth int          `json:"maxDepth,omitempty"`
	// IfMatch, when set, is the digest the target must have before the
	// call, as returned by a non-recursive serialize with the same
	// maxDepth.
	IfMatch string `json:"ifMatch,omitempty"`
}

type PopulateResult struct {
	OK      bool `json:"ok"`
	Changed bool `json:"changed"`
	// Member is the target serialized after the call.
	Member *wire.Member `json:"member"`
	Digest string       `json:"digest"`
	// Patch is the merge patch from the target's state before the call
	// to its state after.
	Patch       json.RawMessage   `json:"patch"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
}

type SchemaParams struct {
	TypeName string `json:"typeName"`
}

type ResolveParams struct {
	Ref string `json:"ref"`
}

// Server answers bridge requests.  Requests are served one at a time so a
// populate never overlaps another call on the same host objects.
type Server struct {
	r         *reflector.Reflector
	recursive bool
	log       *slog.Logger

	mu sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithRecursive sets the default for serialize requests which do not say.
func WithRecursive(v bool) Option {
	return func(s *Server) { s.recursive = v }
}

func New(r *reflector.Reflector, opts ...Option) *Server {
	s := &Server{
		r:   r,
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the jsonrpc2 handler serving the bridge methods.
func (s *Server) Handler() jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		if err := ctx.Err(); err != nil {
			return reply(ctx, nil, err)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.log.Debug("request", "method", req.Method())
		var (
			res any
			err error
		)
		switch req.Method() {
		case MethodSerialize:
			var p SerializeParams
			if err := decode(req, &p); err != nil {
				return reply(ctx, nil, err)
			}
			res, err = s.serialize(&p)
		case MethodPopulate:
			var p PopulateParams
			if err := decode(req, &p); err != nil {
				return reply(ctx, nil, err)
			}
			res, err = s.populate(&p)
		case MethodSchema:
			var p SchemaParams
			if err := decode(req, &p); err != nil {
				return reply(ctx, nil, err)
			}
			res, err = s.schema(&p)
		case MethodTypes:
			res = s.r.Registry().Types()
		case MethodResolve:
			var p ResolveParams
			if err := decode(req, &p); err != nil {
				return reply(ctx, nil, err)
			}
			res, err = s.resolve(&p)
		default:
			return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
		}
		if err != nil {
			s.log.Debug("request failed", "method", req.Method(), "error", err)
			return reply(ctx, nil, toRPCError(err))
		}
		return reply(ctx, res, nil)
	}
}

func decode(req jsonrpc2.Request, v any) error {
	if err := json.Unmarshal(req.Params(), v); err != nil {
		return jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error())
	}
	return nil
}

func toRPCError(err error) error {
	switch {
	case errors.Is(err, errConflict):
		return jsonrpc2.NewError(CodeConflict, err.Error())
	case errors.Is(err, errParams),
		errors.Is(err, reference.ErrNotFound),
		errors.Is(err, diag.ErrMalformedMember),
		errors.Is(err, diag.ErrInvalidTarget):
		return jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error())
	}
	return jsonrpc2.NewError(jsonrpc2.InternalError, err.Error())
}

func (s *Server) lookup(ref string) (any, error) {
	wr, err := reference.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errParams, err)
	}
	obj, _, err := s.r.Resolver().FromReference(wr, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}
	return obj, nil
}

func (s *Server) serialize(p *SerializeParams) (*SerializeResult, error) {
	obj, err := s.lookup(p.Ref)
	if err != nil {
		return nil, err
	}
	rec := s.recursive
	if p.Recursive != nil {
		rec = *p.Recursive
	}
	m, log, err := s.r.Serialize(obj, p.MaxDepth, rec)
	if err != nil {
		return nil, err
	}
	d, err := wire.Digest(m)
	if err != nil {
		return nil, err
	}
	return &SerializeResult{Member: m, Digest: d.String(), Diagnostics: entries(log)}, nil
}

func (s *Server) populate(p *PopulateParams) (*PopulateResult, error) {
	if p.Member == nil {
		return nil, fmt.Errorf("%w: no member", errParams)
	}
	obj, err := s.lookup(p.Ref)
	if err != nil {
		return nil, err
	}
	before, _, err := s.r.Serialize(obj, p.MaxDepth, false)
	if err != nil {
		return nil, err
	}
	if p.IfMatch != "" {
		d, err := wire.Digest(before)
		if err != nil {
			return nil, err
		}
		if d.String() != p.IfMatch {
			return nil, fmt.Errorf("%w: %s has digest %s, not %s", errConflict, p.Ref, d, p.IfMatch)
		}
	}
	ok, log, err := s.r.Populate(obj, p.Member, p.MaxDepth)
	if err != nil {
		return nil, err
	}
	after, _, err := s.r.Serialize(obj, p.MaxDepth, false)
	if err != nil {
		return nil, err
	}
	patch, err := wire.Diff(before, after)
	if err != nil {
		return nil, err
	}
	d, err := wire.Digest(after)
	if err != nil {
		return nil, err
	}
	return &PopulateResult{
		OK:          ok,
		Changed:     !wire.Equal(before, after),
		Member:      after,
		Digest:      d.String(),
		Patch:       patch,
		Diagnostics: entries(log),
	}, nil
}

func (s *Server) schema(p *SchemaParams) (*jsonschema.Schema, error) {
	t, ok := s.r.Registry().LookupType(p.TypeName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown type %q", errParams, p.TypeName)
	}
	return s.r.SchemaFor(t)
}

func (s *Server) resolve(p *ResolveParams) (*wire.Reference, error) {
	obj, err := s.lookup(p.Ref)
	if err != nil {
		return nil, err
	}
	ref, err := s.r.Resolver().ToReference(obj)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func entries(log *diag.Log) []diag.Diagnostic {
	es := log.Entries()
	if es == nil {
		return []diag.Diagnostic{}
	}
	return es
}

// Serve runs the bridge over rw until the peer closes it or ctx is done.
func (s *Server) Serve(ctx context.Context, rw io.ReadWriteCloser) error {
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rw))
	conn.Go(ctx, s.Handler())
	select {
	case <-ctx.Done():
		conn.Close()
		<-conn.Done()
		return ctx.Err()
	case <-conn.Done():
	}
	if err := conn.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
		return err
	}
	return nil
}
