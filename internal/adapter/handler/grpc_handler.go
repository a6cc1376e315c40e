package handler

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/book-exchange/internal/core/service"
)

const serviceName = "bookexchange.v1.ExchangeService"

type RequestExchangeRequest struct {
	OfferedItemID   string `json:"offered_item_id"`
	RequestedItemID string `json:"requested_item_id"`
	RequesterID     string `json:"requester_id"`
	OwnerID         string `json:"owner_id"`
	OwnerEmail      string `json:"owner_email"`
}

type RequestExchangeResponse struct {
	ExchangeID string `json:"exchange_id"`
}

type RespondToExchangeRequest struct {
	ExchangeID  string `json:"exchange_id"`
	Action      string `json:"action"`
	ResponderID string `json:"responder_id"`
}

type RespondToExchangeResponse struct {
	Success bool `json:"success"`
}

type GetExchangesForUserRequest struct {
	UserID string `json:"user_id"`
}

type GetExchangesForUserResponse struct {
	Exchanges []ExchangeHTTPResponse `json:"exchanges"`
}

// ExchangeServer is the server side of bookexchange.v1.ExchangeService.
type ExchangeServer interface {
	RequestExchange(context.Context, *RequestExchangeRequest) (*RequestExchangeResponse, error)
	RespondToExchange(context.Context, *RespondToExchangeRequest) (*RespondToExchangeResponse, error)
	GetExchangesForUser(context.Context, *GetExchangesForUserRequest) (*GetExchangesForUserResponse, error)
}

type GRPCHandler struct {
	exchanges *service.ExchangeService
	logger    *slog.Logger
}

func NewGRPCHandler(exchanges *service.ExchangeService, logger *slog.Logger) *GRPCHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCHandler{exchanges: exchanges, logger: logger}
}

func RegisterExchangeServer(s grpc.ServiceRegistrar, srv ExchangeServer) {
	s.RegisterService(&exchangeServiceDesc, srv)
}

func (h *GRPCHandler) RequestExchange(ctx context.Context, req *RequestExchangeRequest) (*RequestExchangeResponse, error) {
	ownerID := req.OwnerID
	if ownerID == "" && req.OwnerEmail != "" {
		id, err := h.exchanges.ResolveUserID(ctx, req.OwnerEmail)
		if err != nil {
			return nil, h.statusError("RequestExchange", err)
		}
		ownerID = id
	}

	exchangeID, err := h.exchanges.RequestExchange(ctx, req.OfferedItemID, req.RequestedItemID, req.RequesterID, ownerID)
	if err != nil {
		return nil, h.statusError("RequestExchange", err)
	}
	return &RequestExchangeResponse{ExchangeID: exchangeID}, nil
}

func (h *GRPCHandler) RespondToExchange(ctx context.Context, req *RespondToExchangeRequest) (*RespondToExchangeResponse, error) {
	ok, err := h.exchanges.RespondToExchange(ctx, req.ExchangeID, req.Action, req.ResponderID)
	if err != nil {
		return nil, h.statusError("RespondToExchange", err)
	}
	return &RespondToExchangeResponse{Success: ok}, nil
}

func (h *GRPCHandler) GetExchangesForUser(ctx context.Context, req *GetExchangesForUserRequest) (*GetExchangesForUserResponse, error) {
	exchanges, err := h.exchanges.GetExchangesForUser(ctx, req.UserID)
	if err != nil {
		return nil, h.statusError("GetExchangesForUser", err)
	}

	resp := &GetExchangesForUserResponse{Exchanges: make([]ExchangeHTTPResponse, 0, len(exchanges))}
	for _, e := range exchanges {
		resp.Exchanges = append(resp.Exchanges, toExchangeResponse(e))
	}
	return resp, nil
}

func (h *GRPCHandler) statusError(method string, err error) error {
	_, code, message := classify(err)
	if code == codes.Internal {
		h.logger.Error("rpc failed", "method", method, "error", err)
	}
	return status.Error(code, message)
}

var exchangeServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ExchangeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RequestExchange", Handler: requestExchangeHandler},
		{MethodName: "RespondToExchange", Handler: respondToExchangeHandler},
		{MethodName: "GetExchangesForUser", Handler: getExchangesForUserHandler},
	},
	Streams: []grpc.StreamDesc{},
}

var requestExchangeHandler = unaryHandler("RequestExchange",
	func(srv ExchangeServer, ctx context.Context, req *RequestExchangeRequest) (any, error) {
		return srv.RequestExchange(ctx, req)
	})

var respondToExchangeHandler = unaryHandler("RespondToExchange",
	func(srv ExchangeServer, ctx context.Context, req *RespondToExchangeRequest) (any, error) {
		return srv.RespondToExchange(ctx, req)
	})

var getExchangesForUserHandler = unaryHandler("GetExchangesForUser",
	func(srv ExchangeServer, ctx context.Context, req *GetExchangesForUserRequest) (any, error) {
		return srv.GetExchangesForUser(ctx, req)
	})

// unaryHandler adapts a typed method to grpc.MethodDesc, the job generated
// _grpc.pb.go code does for protobuf services.
func unaryHandler[Req any](method string, call func(ExchangeServer, context.Context, *Req) (any, error)) grpc.MethodHandler {
	fullMethod := "/" + serviceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ExchangeServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ExchangeServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
