package gateway

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthServiceName is the service name reported by the gRPC health server.
const HealthServiceName = "gradefetch.GradeService"

// NewHealthServer builds a gRPC server exposing the standard health and
// reflection services. The grade service starts NOT_SERVING until the caller
// marks it ready.
func NewHealthServer() (*grpc.Server, *health.Server) {
	grpcServer := grpc.NewServer()

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(HealthServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	reflection.Register(grpcServer)

	return grpcServer, healthServer
}

// SetServing flips the grade service health status.
func SetServing(h *health.Server, serving bool) {
	st := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		st = grpc_health_v1.HealthCheckResponse_SERVING
	}
	h.SetServingStatus(HealthServiceName, st)
}
