package postgres

import (
	"context"
	"fmt"
	"net"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/stock-ledger/pkg/config"
)

// NewPool abre el pool de PostgreSQL, registra NUMERIC <-> decimal.Decimal y verifica la conexión.
func NewPool(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	// Contenedores sin ruta IPv6: se conecta por IPv4 cuando el host la tiene.
	poolConfig.ConnConfig.DialFunc = ipv4FirstDialer(net.DefaultResolver, &net.Dialer{Timeout: 5 * time.Second})

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	poolConfig.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("crear pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}
	return pool, nil
}

type ipLookup interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

// ipv4FirstDialer conecta a la primera IPv4 del host; si no hay, usa la dirección original.
func ipv4FirstDialer(r ipLookup, d *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		network, addr = dialTarget(ctx, r, network, addr)
		return d.DialContext(ctx, network, addr)
	}
}

func dialTarget(ctx context.Context, r ipLookup, network, addr string) (string, string) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil || network == "unix" {
		return network, addr
	}
	if ip := net.ParseIP(host); ip != nil {
		return network, addr
	}
	ips, err := r.LookupIP(ctx, "ip4", host)
	if err != nil {
		return network, addr
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return "tcp4", net.JoinHostPort(v4.String(), port)
		}
	}
	return network, addr
}
