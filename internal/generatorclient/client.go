package generatorclient

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/lzjever/escn/internal/core"
	"github.com/lzjever/escn/internal/generatorsvc"
)

// Client calls a remote escn-generator. It satisfies api.Generator.
type Client struct {
	conn *grpc.ClientConn
}

// New connects lazily to addr. Extra dial options are appended after the
// insecure transport credentials.
func New(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial generator %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Generate mints one ESCN remotely. Validation errors come back with their
// core.ErrorCode; transport failures are ErrGeneratorUnavailable.
func (c *Client) Generate(ctx context.Context, prefix, pic string) (string, error) {
	req, err := structpb.NewStruct(map[string]interface{}{"prefix": prefix, "pic": pic})
	if err != nil {
		return "", core.WrapAppError(core.ErrInternal, "encode generate request", err)
	}

	var trailer metadata.MD
	out := new(wrapperspb.StringValue)
	err = c.conn.Invoke(ctx, generatorsvc.GenerateMethod, req, out, grpc.Trailer(&trailer))
	if err != nil {
		if vals := trailer.Get(generatorsvc.ErrorCodeTrailer); len(vals) > 0 {
			return "", core.NewAppError(core.ErrorCode(vals[0]), status.Convert(err).Message())
		}
		return "", core.WrapAppError(core.ErrGeneratorUnavailable, "escn generator unavailable", err)
	}
	return out.GetValue(), nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
