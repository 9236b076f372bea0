package clientx

import (
	"net/url"

	"connectrpc.com/connect"

	"go.eggybyte.com/clientpool/core/errors"
	"go.eggybyte.com/clientpool/core/identity"
)

// NewConnectClient builds a generated Connect client on the pooled handle for
// baseURL. newClient is the generated constructor, e.g. greetv1connect.NewGreetServiceClient.
//
// When the registry has metrics, ClientMetricsInterceptor is installed ahead
// of opts.
func NewConnectClient[T any](
	r *Registry,
	sel identity.ProxySelector,
	baseURL string,
	newClient func(connect.HTTPClient, string, ...connect.ClientOption) T,
	opts ...connect.ClientOption,
) (T, error) {
	const op = "clientx.NewConnectClient"
	var zero T

	target, err := url.Parse(baseURL)
	if err != nil {
		return zero, errors.Wrap(errors.CodeInvalidArgument, op, err)
	}
	if target.Scheme == "" || target.Host == "" {
		return zero, errors.New(errors.CodeInvalidArgument, op, "base URL must be absolute: "+baseURL)
	}

	httpClient, err := r.GetClient(sel, target)
	if err != nil {
		return zero, err
	}

	if r.metrics != nil {
		opts = append([]connect.ClientOption{connect.WithInterceptors(ClientMetricsInterceptor(r.metrics))}, opts...)
	}
	return newClient(httpClient, baseURL, opts...), nil
}
