package logistics

import "context"

type StoreAPI interface {
	CreateTransport(ctx context.Context, t Transport) (Transport, error)
	GetTransport(ctx context.Context, shopName, id string) (Transport, error)
	ListTransports(ctx context.Context, shopName string, filter TransportFilter) ([]Transport, error)
	// SaveTransport writes the mutable fields: status, completion time and
	// transporter.
	SaveTransport(ctx context.Context, t Transport) error
}
