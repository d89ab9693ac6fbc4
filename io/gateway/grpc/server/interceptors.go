package server

import (
	"context"
	"runtime/debug"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Logger intercepts RPC and logs the method, its duration and failure.
func Logger(ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()

	// Calls the handler
	h, err := handler(ctx, req)

	entry := log.WithFields(log.Fields{
		"method":   info.FullMethod,
		"duration": time.Since(start),
	})
	if err != nil {
		entry.Warnf("rpc failed: %v", err)
	} else {
		entry.Debug("rpc served")
	}

	return h, err
}

// Recovery turns a panic in the handler into an Internal error.
func Recovery(ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler) (h interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("panic in %s: %v\n%s", info.FullMethod, r, debug.Stack())
			h, err = nil, status.Errorf(codes.Internal, "internal error")
		}
	}()

	return handler(ctx, req)
}
