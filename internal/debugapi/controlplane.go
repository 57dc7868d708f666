package debugapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/relaygrid/actorhub/internal/runtime/handle"
	"github.com/relaygrid/actorhub/internal/runtime/module"
	"github.com/relaygrid/actorhub/internal/runtime/service"
)

// jsonCodec lets the debug control plane speak grpc without a .proto
// toolchain step: messages are plain JSON-tagged structs, encoded over the
// wire the same way NewHTTPHandler's /services endpoint already encodes
// ServiceSnapshot. Clients dial with grpc.CallContentSubtype("json").
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return "json" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type registerRequest struct {
	ModuleName string `json:"module_name"`
	Name       string `json:"name,omitempty"`
	StartArgs  string `json:"start_args,omitempty"`
	MailboxCap int    `json:"mailbox_cap,omitempty"`
}

type registerReply struct {
	Addr string `json:"addr"`
}

type retireRequest struct {
	Addr string `json:"addr"`
}

type retireReply struct {
	Ok bool `json:"ok"`
}

type statRequest struct{}

type statReply struct {
	LiveServices int64 `json:"live_services"`
	Registered   int   `json:"registered"`
}

// ControlPlane is the tiny "register/retire/stat" debug surface: an
// operator-facing way to spin up and tear down already-compiled-in module
// types (module.Registry entries, not loadable .so files) without
// restarting the process, and to read back the live-service count the
// scheduler uses for shutdown readiness.
type ControlPlane struct {
	core *service.Core
	mods *module.Registry
}

func NewControlPlane(core *service.Core, mods *module.Registry) *ControlPlane {
	return &ControlPlane{core: core, mods: mods}
}

func (c *ControlPlane) Register(_ context.Context, req *registerRequest) (*registerReply, error) {
	mod, ok := c.mods.Lookup(req.ModuleName)
	if !ok {
		return nil, fmt.Errorf("debugapi: module type %q not registered", req.ModuleName)
	}
	mailboxCap := req.MailboxCap
	if mailboxCap <= 0 {
		mailboxCap = 256
	}
	ctx, err := c.core.Register(mod, req.Name, req.StartArgs, mailboxCap)
	if err != nil {
		return nil, err
	}
	return &registerReply{Addr: ctx.Addr().String()}, nil
}

func (c *ControlPlane) Retire(_ context.Context, req *retireRequest) (*retireReply, error) {
	h, err := parseHandle(req.Addr)
	if err != nil {
		return nil, err
	}
	return &retireReply{Ok: c.core.Retire(h)}, nil
}

func (c *ControlPlane) Stat(_ context.Context, _ *statRequest) (*statReply, error) {
	return &statReply{LiveServices: c.core.LiveServiceCount()}, nil
}

func parseHandle(addr string) (handle.Handle, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(addr, ":"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("debugapi: malformed address %q: %w", addr, err)
	}
	return handle.Handle(v), nil
}

// controlPlaneServer is the hand-written analogue of a protoc-gen-go-grpc
// server interface; grpc.RegisterService checks the registered
// implementation against it via reflection.
type controlPlaneServer interface {
	Register(context.Context, *registerRequest) (*registerReply, error)
	Retire(context.Context, *retireRequest) (*retireReply, error)
	Stat(context.Context, *statRequest) (*statReply, error)
}

func registerHandler(ctx context.Context, srv any, dec func(any) error, interceptor grpc.UnaryServerInterceptor, method string, req any, call func(context.Context, any) (any, error)) (any, error) {
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return call(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
	return interceptor(ctx, req, info, func(ctx context.Context, req any) (any, error) {
		return call(ctx, req)
	})
}

func controlPlaneRegisterHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return registerHandler(ctx, srv, dec, interceptor, "/actorhub.debug.ControlPlane/Register", new(registerRequest), func(ctx context.Context, req any) (any, error) {
		return srv.(controlPlaneServer).Register(ctx, req.(*registerRequest))
	})
}

func controlPlaneRetireHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return registerHandler(ctx, srv, dec, interceptor, "/actorhub.debug.ControlPlane/Retire", new(retireRequest), func(ctx context.Context, req any) (any, error) {
		return srv.(controlPlaneServer).Retire(ctx, req.(*retireRequest))
	})
}

func controlPlaneStatHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return registerHandler(ctx, srv, dec, interceptor, "/actorhub.debug.ControlPlane/Stat", new(statRequest), func(ctx context.Context, req any) (any, error) {
		return srv.(controlPlaneServer).Stat(ctx, req.(*statRequest))
	})
}

var controlPlaneServiceDesc = grpc.ServiceDesc{
	ServiceName: "actorhub.debug.ControlPlane",
	HandlerType: (*controlPlaneServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: controlPlaneRegisterHandler},
		{MethodName: "Retire", Handler: controlPlaneRetireHandler},
		{MethodName: "Stat", Handler: controlPlaneStatHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "debugapi/controlplane.go",
}
