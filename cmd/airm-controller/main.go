package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/amd-eai/airm/internal/api"
	"github.com/amd-eai/airm/internal/api/handler"
	"github.com/amd-eai/airm/internal/apikey"
	"github.com/amd-eai/airm/internal/auth"
	"github.com/amd-eai/airm/internal/authclient"
	"github.com/amd-eai/airm/internal/fabric"
	"github.com/amd-eai/airm/internal/inbound"
	"github.com/amd-eai/airm/internal/metrics"
	"github.com/amd-eai/airm/internal/store"
)

// options holds the controller's flag-configurable settings, mirroring the
// teacher's serverOptions (cmd/unikorn-server) but widened to also cover
// the Postgres DSN, OIDC issuer, broker, identity provider, and
// cluster-auth service connections this control plane needs.
type options struct {
	listenAddress     string
	readTimeout       time.Duration
	readHeaderTimeout time.Duration
	writeTimeout      time.Duration
	requestTimeout    time.Duration

	postgresDSN string

	oidcIssuerURL string
	oidcClientID  string

	brokerHost     string
	brokerPort     int
	brokerUser     string
	brokerPassword string

	keycloakBaseURL      string
	keycloakRealm        string
	keycloakClientID     string
	keycloakClientSecret string

	clusterAuthBaseURL    string
	clusterAuthAdminToken string

	otlpEndpoint string
}

func (o *options) addFlags(f *pflag.FlagSet) {
	f.StringVar(&o.listenAddress, "listen-address", ":6080", "API listener address.")
	f.DurationVar(&o.readTimeout, "read-timeout", time.Second, "How long to wait for the client to send the request body.")
	f.DurationVar(&o.readHeaderTimeout, "read-header-timeout", time.Second, "How long to wait for the client to send headers.")
	f.DurationVar(&o.writeTimeout, "write-timeout", 10*time.Second, "How long to wait for the API to respond to the client.")
	f.DurationVar(&o.requestTimeout, "request-timeout", 30*time.Second, "Per-request deadline applied by the chi timeout middleware.")

	f.StringVar(&o.postgresDSN, "postgres-dsn", "", "Postgres connection string (libpq DSN).")

	f.StringVar(&o.oidcIssuerURL, "oidc-issuer-url", "", "OIDC issuer URL of the identity provider.")
	f.StringVar(&o.oidcClientID, "oidc-client-id", "", "OIDC audience this API accepts tokens for.")

	f.StringVar(&o.brokerHost, "broker-host", "localhost", "RabbitMQ broker host.")
	f.IntVar(&o.brokerPort, "broker-port", 5672, "RabbitMQ broker AMQP port.")
	f.StringVar(&o.brokerUser, "broker-admin-user", "guest", "RabbitMQ operator user the controller publishes as.")
	f.StringVar(&o.brokerPassword, "broker-admin-password", "guest", "RabbitMQ operator user's password.")

	f.StringVar(&o.keycloakBaseURL, "keycloak-base-url", "", "Identity provider admin API base URL.")
	f.StringVar(&o.keycloakRealm, "keycloak-realm", "", "Identity provider realm.")
	f.StringVar(&o.keycloakClientID, "keycloak-client-id", "", "Client-credentials client id for the identity provider admin API.")
	f.StringVar(&o.keycloakClientSecret, "keycloak-client-secret", "", "Client-credentials client secret for the identity provider admin API.")

	f.StringVar(&o.clusterAuthBaseURL, "cluster-auth-base-url", "", "Cluster-auth service base URL.")
	f.StringVar(&o.clusterAuthAdminToken, "cluster-auth-admin-token", "", "Cluster-auth service admin token.")

	f.StringVar(&o.otlpEndpoint, "otlp-endpoint", "", "OTLP/HTTP collector endpoint for request traces. Traces are logged regardless.")
}

func start() error {
	zapOptions := &zap.Options{}
	zapOptions.BindFlags(flag.CommandLine)

	opts := &options{}
	opts.addFlags(pflag.CommandLine)

	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Parse()

	log.SetLogger(zap.New(zap.UseFlagOptions(zapOptions)))
	logger := log.Log.WithName("airm-controller")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := api.SetupTracing(ctx, opts.otlpEndpoint); err != nil {
		return err
	}

	logger.Info("connecting to store")

	st, err := store.Open(ctx, opts.postgresDSN)
	if err != nil {
		return err
	}
	defer st.Close()

	logger.Info("discovering oidc provider", "issuer", opts.oidcIssuerURL)

	verifier, err := auth.NewVerifier(ctx, opts.oidcIssuerURL, opts.oidcClientID)
	if err != nil {
		return err
	}

	idp := authclient.NewKeycloak(opts.keycloakBaseURL, opts.keycloakRealm, opts.keycloakClientID, opts.keycloakClientSecret)
	externalAuth := authclient.NewClusterAuth(opts.clusterAuthBaseURL, opts.clusterAuthAdminToken)
	groups := &apikey.StoreGroupResolver{Store: st}

	connector := fabric.NewConnector()
	urls := fabric.BrokerURLBuilder{
		Host:     opts.brokerHost,
		Port:     opts.brokerPort,
		Username: opts.brokerUser,
		Password: opts.brokerPassword,
	}
	bus := fabric.NewClusterBus(connector, urls)
	defer bus.Close()

	recorder := metrics.NewRecorder(prometheus.DefaultRegisterer)

	controller := inbound.New(st, idp, recorder, bus)

	commonURL := fabric.BrokerURL(opts.brokerUser, opts.brokerPassword, opts.brokerHost, opts.brokerPort, fabric.CommonVHost)

	consumer, err := fabric.DialConsumer(connector, commonURL, fabric.CommonQueue)
	if err != nil {
		return err
	}

	go func() {
		if err := consumer.Run(ctx, controller.Handle); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error(err, "common queue consumer stopped")
		}
	}()

	h := handler.New(st, idp, bus, externalAuth, groups, time.Now)
	router := api.NewRouter(h, verifier, opts.requestTimeout)
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              opts.listenAddress,
		ReadTimeout:       opts.readTimeout,
		ReadHeaderTimeout: opts.readHeaderTimeout,
		WriteTimeout:      opts.writeTimeout,
		Handler:           router,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-stop
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error(err, "server shutdown error")
		}
	}()

	logger.Info("listening", "address", opts.listenAddress)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func main() {
	if err := start(); err != nil {
		log.Log.Error(err, "airm-controller exited")
		os.Exit(1)
	}
}
