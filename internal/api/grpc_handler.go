package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

const (
	StorefrontServiceName      = "storefront.v1.Storefront"
	trackOrderMethod           = "/" + StorefrontServiceName + "/TrackOrder"
	listCategoryProductsMethod = "/" + StorefrontServiceName + "/ListCategoryProducts"
)

// StorefrontServer is the gRPC surface for tracking and catalog browsing.
// Messages are protobuf well-known types so no generated code is needed.
type StorefrontServer interface {
	TrackOrder(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	ListCategoryProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var storefrontServiceDesc = grpc.ServiceDesc{
	ServiceName: StorefrontServiceName,
	HandlerType: (*StorefrontServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "TrackOrder", Handler: trackOrderHandler},
		{MethodName: "ListCategoryProducts", Handler: listCategoryProductsHandler},
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterStorefrontServer registers srv on s.
func RegisterStorefrontServer(s grpc.ServiceRegistrar, srv StorefrontServer) {
	s.RegisterService(&storefrontServiceDesc, srv)
}

func trackOrderHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StorefrontServer).TrackOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: trackOrderMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StorefrontServer).TrackOrder(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func listCategoryProductsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StorefrontServer).ListCategoryProducts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listCategoryProductsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StorefrontServer).ListCategoryProducts(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// GRPCHandler implements StorefrontServer.
type GRPCHandler struct {
	orders   OrderService
	products store.ProductStorer
}

// NewGRPCHandler creates a new GRPCHandler.
func NewGRPCHandler(orders OrderService, products store.ProductStorer) *GRPCHandler {
	return &GRPCHandler{orders: orders, products: products}
}

var _ StorefrontServer = (*GRPCHandler)(nil)

// --- Helper: Error Mapping ---
func mapStoreErrorToGrpcStatus(err error, op string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, store.ErrOrderNotFound):
		return status.Error(codes.NotFound, "order not found")
	case errors.Is(err, store.ErrCategoryNotFound), errors.Is(err, store.ErrProductNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		log.Printf("ERROR: gRPC %s failed: %v", op, err)
		return status.Errorf(codes.Internal, "failed to process %s", op)
	}
}

// toStruct converts a JSON-serialisable value into a protobuf Struct.
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return structpb.NewStruct(fields)
}

func (s *GRPCHandler) TrackOrder(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	trackingID := req.GetValue()
	if trackingID == "" {
		return nil, status.Error(codes.InvalidArgument, "tracking id is required")
	}

	order, err := s.orders.TrackOrder(ctx, trackingID)
	if err != nil {
		return nil, mapStoreErrorToGrpcStatus(err, "TrackOrder")
	}
	out, err := toStruct(order)
	if err != nil {
		return nil, mapStoreErrorToGrpcStatus(err, "TrackOrder")
	}
	return out, nil
}

// categoryQueryFromStruct reads the same parameters as the HTTP browse endpoint.
// Numbers may arrive as JSON numbers or strings.
func categoryQueryFromStruct(req *structpb.Struct) (store.CategoryQuery, error) {
	fields := req.AsMap()
	q := store.CategoryQuery{}

	str := func(name string) string {
		switch v := fields[name].(type) {
		case string:
			return v
		case float64:
			return decimal.NewFromFloat(v).String()
		}
		return ""
	}

	q.Category = str("category")
	q.Sort = str("sort")
	if !store.ValidProductSort(q.Sort) {
		return q, fmt.Errorf("unknown sort %q", q.Sort)
	}

	for _, bound := range []struct {
		name string
		dst  **decimal.Decimal
	}{{"price_min", &q.PriceMin}, {"price_max", &q.PriceMax}} {
		raw := str(bound.name)
		if raw == "" {
			continue
		}
		price, err := decimal.NewFromString(raw)
		if err != nil || price.IsNegative() {
			return q, fmt.Errorf("%s must be a non-negative number", bound.name)
		}
		*bound.dst = &price
	}
	if q.PriceMin != nil && q.PriceMax != nil && q.PriceMin.GreaterThan(*q.PriceMax) {
		return q, errors.New("price_min cannot exceed price_max")
	}

	for _, n := range []struct {
		name string
		dst  *int
	}{{"page", &q.Page}, {"pageSize", &q.PageSize}} {
		v, ok := fields[n.name].(float64)
		if !ok {
			continue
		}
		if v < 1 || v != float64(int(v)) {
			return q, fmt.Errorf("%s must be a positive integer", n.name)
		}
		*n.dst = int(v)
	}
	if q.PageSize > maxCategoryPageSize {
		q.PageSize = maxCategoryPageSize
	}

	if raw := str("available"); raw != "" {
		availability := domain.AvailabilityStatus(raw)
		if !availability.Valid() {
			return q, fmt.Errorf("unknown availability %q", raw)
		}
		q.Available = &availability
	}
	return q, nil
}

func (s *GRPCHandler) ListCategoryProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	q, err := categoryQueryFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	page, err := s.products.QueryProductsByCategory(ctx, q)
	if err != nil {
		return nil, mapStoreErrorToGrpcStatus(err, "ListCategoryProducts")
	}
	out, err := toStruct(page)
	if err != nil {
		return nil, mapStoreErrorToGrpcStatus(err, "ListCategoryProducts")
	}
	return out, nil
}

// LoggingInterceptor logs every unary call with its status code and latency.
func LoggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	log.Printf("INFO: gRPC %s %s in %s", info.FullMethod, status.Code(err), time.Since(start))
	return resp, err
}
