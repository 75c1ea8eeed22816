// Package pgtest starts a disposable PostgreSQL server for integration tests.
package pgtest

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	User     = "testuser"
	Password = "testpass"
	Database = "testdb"
)

// Container is a running postgres:15 container
type Container struct {
	testcontainers.Container
	Host string
	Port string
}

// DSN returns a key/value connection string for the container
func (c *Container) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, User, Password, Database)
}

// URL returns a postgres:// connection URL for the container
func (c *Container) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		User, Password, net.JoinHostPort(c.Host, c.Port), Database)
}

// Start runs a container and waits until it accepts connections. It skips the
// test in -short mode and terminates the container when the test ends.
func Start(t *testing.T) *Container {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	c, err := start(ctx)
	if err != nil {
		t.Fatalf("failed to start postgres: %v", err)
	}
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})
	t.Logf("Using PostgreSQL on %s:%s", c.Host, c.Port)
	return c
}

func start(ctx context.Context) (*Container, error) {
	port, err := getFreePort()
	if err != nil {
		return nil, fmt.Errorf("could not get free port: %w", err)
	}

	portBindings := nat.PortMap{
		"5432/tcp": []nat.PortBinding{{HostPort: strconv.Itoa(port)}},
	}

	req := testcontainers.ContainerRequest{
		Image: "postgres:15",
		Env: map[string]string{
			"POSTGRES_USER":     User,
			"POSTGRES_PASSWORD": Password,
			"POSTGRES_DB":       Database,
		},
		ExposedPorts: []string{"5432/tcp"},
		HostConfigModifier: func(cfg *container.HostConfig) {
			cfg.PortBindings = portBindings
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithStartupTimeout(30 * time.Second),
	}

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("failed to get host: %w", err)
	}

	// the mapped port can differ from the requested one
	mappedPort, err := ctr.MappedPort(ctx, "5432")
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("failed to get mapped port: %w", err)
	}

	c := &Container{Container: ctr, Host: host, Port: mappedPort.Port()}
	if err := waitForPostgresReady(c.DSN(), 30*time.Second); err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("postgres container not ready: %w", err)
	}
	return c, nil
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()

	return l.Addr().(*net.TCPAddr).Port, nil
}

// waitForPostgresReady pings through lib/pq until the server answers or the timeout expires
func waitForPostgresReady(dsn string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for PostgreSQL to be ready after %s", timeout)
		}

		db, err := sql.Open("postgres", dsn)
		if err != nil {
			time.Sleep(500 * time.Millisecond)
			continue
		}

		err = db.Ping()
		_ = db.Close()
		if err == nil {
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
}
