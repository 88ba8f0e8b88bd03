package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	k8swatch "k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"k8s.io/klog/v2"

	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/amd-eai/airm/internal/dispatcher"
	"github.com/amd-eai/airm/internal/dispatcher/consumer"
	"github.com/amd-eai/airm/internal/dispatcher/health"
	"github.com/amd-eai/airm/internal/dispatcher/nodes"
	"github.com/amd-eai/airm/internal/dispatcher/reconcile"
	"github.com/amd-eai/airm/internal/dispatcher/watch"
	"github.com/amd-eai/airm/internal/fabric"
)

// heartbeatInterval is how often the dispatcher reports liveness (spec
// §4.5 "periodically"); chosen well under the controller's 5-minute
// UNHEALTHY threshold so a single missed beat never flips cluster status.
const heartbeatInterval = 60 * time.Second

const gpuConfigNamespace = "kaiwo-system"
const gpuConfigName = "gpu-config"

var gpuConfigGVR = schema.GroupVersionResource{Version: "v1", Resource: "configmaps"}

// watchedKind pairs a GVR with the component-status function and a flag
// for whether its CRD may legitimately be absent (spec §4.9 "full watcher
// roster").
type watchedKind struct {
	name            string
	gvr             schema.GroupVersionResource
	status          reconcile.StatusFunc
	ifResourceExists bool
}

func watchedKinds() []watchedKind {
	return []watchedKind{
		{name: "Job", gvr: schema.GroupVersionResource{Group: "batch", Version: "v1", Resource: "jobs"}, status: reconcile.StatusForJob},
		{name: "Deployment", gvr: schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "deployments"}, status: reconcile.StatusForDeployment},
		{name: "ConfigMap", gvr: schema.GroupVersionResource{Version: "v1", Resource: "configmaps"}, status: reconcile.StatusAdded},
		{name: "Service", gvr: schema.GroupVersionResource{Version: "v1", Resource: "services"}, status: reconcile.StatusForService},
		{name: "Pod", gvr: schema.GroupVersionResource{Version: "v1", Resource: "pods"}, status: reconcile.StatusForPod},
		{name: "StatefulSet", gvr: schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "statefulsets"}, status: reconcile.StatusForStatefulSetOrDaemonSet},
		{name: "DaemonSet", gvr: schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "daemonsets"}, status: reconcile.StatusForStatefulSetOrDaemonSet},
		{name: "CronJob", gvr: schema.GroupVersionResource{Group: "batch", Version: "v1", Resource: "cronjobs"}, status: reconcile.StatusAdded},
		{name: "Ingress", gvr: schema.GroupVersionResource{Group: "networking.k8s.io", Version: "v1", Resource: "ingresses"}, status: reconcile.StatusAdded},
		{name: "HTTPRoute", gvr: schema.GroupVersionResource{Group: "gateway.networking.k8s.io", Version: "v1", Resource: "httproutes"}, status: reconcile.StatusAdded, ifResourceExists: true},
		{name: "KaiwoJob", gvr: schema.GroupVersionResource{Group: "kaiwo.silogen.ai", Version: "v1alpha1", Resource: "kaiwojobs"}, status: reconcile.StatusForKaiwoOrAIM, ifResourceExists: true},
		{name: "KaiwoService", gvr: schema.GroupVersionResource{Group: "kaiwo.silogen.ai", Version: "v1alpha1", Resource: "kaiwoservices"}, status: reconcile.StatusForKaiwoOrAIM, ifResourceExists: true},
		{name: "AIMService", gvr: schema.GroupVersionResource{Group: "aim.silogen.ai", Version: "v1alpha1", Resource: "aimservices"}, status: reconcile.StatusForKaiwoOrAIM, ifResourceExists: true},
	}
}

var kaiwoQueueConfigGVR = schema.GroupVersionResource{Group: "kaiwo.silogen.ai", Version: "v1alpha1", Resource: "kaiwoqueueconfigs"}

type options struct {
	healthListenAddress string
	brokerHost          string
	brokerPort          int
	brokerUser          string
	brokerPassword      string
	useLocalKubeContext bool
	kubeconfig          string
}

func (o *options) addFlags(f *pflag.FlagSet) {
	f.StringVar(&o.healthListenAddress, "health-listen-address", ":8081", "Address to serve /v1/health and /metrics on.")
	f.StringVar(&o.brokerHost, "broker-host", "localhost", "RabbitMQ broker host.")
	f.IntVar(&o.brokerPort, "broker-port", 5672, "RabbitMQ broker AMQP port.")
	f.StringVar(&o.brokerUser, "broker-user", "guest", "This cluster's dispatcher AMQP user.")
	f.StringVar(&o.brokerPassword, "broker-password", "guest", "This cluster's dispatcher AMQP password.")
	f.BoolVar(&o.useLocalKubeContext, "use-local-kube-context", os.Getenv("USE_LOCAL_KUBE_CONTEXT") == "true", "Use the local kubeconfig instead of in-cluster config (development only).")
	f.StringVar(&o.kubeconfig, "kubeconfig", filepath.Join(os.Getenv("HOME"), ".kube", "config"), "Path to a kubeconfig, used only with --use-local-kube-context.")
}

func restConfig(o *options) (*rest.Config, error) {
	if o.useLocalKubeContext {
		return clientcmd.BuildConfigFromFlags("", o.kubeconfig)
	}

	return rest.InClusterConfig()
}

// resolveIdentity implements spec §4.9's "resolve (org_name, cluster_name)
// from env vars, falling back to the gpu-config ConfigMap" bootstrap.
func resolveIdentity(ctx context.Context, client dynamic.Interface) (dispatcher.Identity, error) {
	org := os.Getenv("ORG_NAME")
	cluster := os.Getenv("KUBE_CLUSTER_NAME")

	if org != "" && cluster != "" {
		return dispatcher.Identity{OrganizationName: org, ClusterName: cluster}, nil
	}

	cm, err := client.Resource(gpuConfigGVR).Namespace(gpuConfigNamespace).Get(ctx, gpuConfigName, metav1.GetOptions{})
	if err != nil {
		return dispatcher.Identity{}, err
	}

	data, _, _ := unstructured.NestedStringMap(cm.Object, "data")

	if org == "" {
		org = data["org_name"]
	}

	if cluster == "" {
		cluster = data["cluster_name"]
	}

	return dispatcher.Identity{OrganizationName: org, ClusterName: cluster}, nil
}

func start() error {
	zapOptions := &zap.Options{}
	zapOptions.BindFlags(flag.CommandLine)

	opts := &options{}
	opts.addFlags(pflag.CommandLine)

	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Parse()

	log.SetLogger(zap.New(zap.UseFlagOptions(zapOptions)))
	logger := log.Log.WithName("airm-dispatcher")

	// client-go logs internally via klog; redirect it into the same
	// structured logger rather than letting it write to stderr unformatted.
	klog.SetLogger(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := restConfig(opts)
	if err != nil {
		return err
	}

	dynamicClient, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return err
	}

	discoveryClient, err := discovery.NewDiscoveryClientForConfig(cfg)
	if err != nil {
		return err
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return err
	}

	identity, err := resolveIdentity(ctx, dynamicClient)
	if err != nil {
		return err
	}

	logger.Info("identity resolved", "organization", identity.OrganizationName, "cluster", identity.ClusterName)

	// The dispatcher's own AMQP user is identical to its cluster id
	// (fabric.ClusterUser), and was handed to this deployment once at
	// provisioning time (spec §4.1: the per-cluster secret "is returned
	// once to the caller; it is never stored" — by the controller. The
	// dispatcher itself is the caller, and keeps it as its own broker
	// credential, typically mounted from a Kubernetes secret).
	connector := fabric.NewConnector()
	ownVHost := fabric.ClusterVHost(opts.brokerUser)
	ownQueue := fabric.ClusterQueue(opts.brokerUser)
	ownURL := fabric.BrokerURL(opts.brokerUser, opts.brokerPassword, opts.brokerHost, opts.brokerPort, ownVHost)

	inbound, err := fabric.DialConsumer(connector, ownURL, ownQueue)
	if err != nil {
		return err
	}

	commonURL := fabric.BrokerURL(opts.brokerUser, opts.brokerPassword, opts.brokerHost, opts.brokerPort, fabric.CommonVHost)

	outbound, err := fabric.DialPublisher(ctx, connector, commonURL, fabric.CommonQueue)
	if err != nil {
		return err
	}
	defer outbound.Close()

	// One-shot bootstrap reports (spec §4.9 "Bootstrap"), sent before the
	// inbound consumer and watchers start.
	if nodesMsg, err := nodes.BuildClusterNodes(ctx, clientset, opts.brokerUser, time.Now()); err != nil {
		logger.Error(err, "list nodes for bootstrap report")
	} else if err := outbound.Publish(ctx, fabric.TypeClusterNodes, nodesMsg); err != nil {
		logger.Error(err, "publish bootstrap cluster_nodes")
	}

	if err := outbound.Publish(ctx, fabric.TypeHeartbeat, fabric.HeartbeatMessage{
		ClusterName:      identity.ClusterName,
		OrganizationName: identity.OrganizationName,
		LastHeartbeatAt:  time.Now(),
	}); err != nil {
		logger.Error(err, "publish bootstrap heartbeat")
	}

	if aimMsg, err := nodes.BuildAIMClusterModels(ctx, dynamicClient, opts.brokerUser, time.Now()); err != nil {
		logger.Error(err, "list AIMClusterModels for bootstrap report")
	} else if err := outbound.Publish(ctx, fabric.TypeAIMClusterModels, aimMsg); err != nil {
		logger.Error(err, "publish bootstrap aim_cluster_models")
	}

	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := outbound.Publish(ctx, fabric.TypeHeartbeat, fabric.HeartbeatMessage{
					ClusterName:      identity.ClusterName,
					OrganizationName: identity.OrganizationName,
					LastHeartbeatAt:  time.Now(),
				}); err != nil {
					logger.Error(err, "publish heartbeat")
				}
			}
		}
	}()

	applier := reconcile.NewApplier(dynamicClient, discoveryClient)

	dispatch := &consumer.Dispatcher{
		Client:  dynamicClient,
		Applier: applier,
		WorkloadDeleter: &reconcile.Deleter{
			Client: dynamicClient,
			Kinds:  kindsOf(watchedKinds()),
		},
		NamespaceDeleter: &reconcile.Deleter{Client: dynamicClient, Kinds: []schema.GroupVersionResource{{Version: "v1", Resource: "namespaces"}}},
		SecretDeleter:    &reconcile.Deleter{Client: dynamicClient, Kinds: []schema.GroupVersionResource{{Version: "v1", Resource: "secrets"}}},
		StorageDeleter:   &reconcile.Deleter{Client: dynamicClient, Kinds: []schema.GroupVersionResource{{Version: "v1", Resource: "configmaps"}}},
		Publisher:        outbound,
		Now:              time.Now,
	}

	go func() {
		if err := inbound.Run(ctx, dispatch.Handle); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error(err, "per-cluster queue consumer stopped")
		}
	}()

	registry := health.NewRegistry()

	for _, k := range watchedKinds() {
		if k.ifResourceExists && !resourceExists(discoveryClient, k.gvr) {
			logger.Info("skipping watcher, CRD not installed", "kind", k.name)
			continue
		}

		reporter := &reconcile.Reporter{Kind: k.name, Status: k.status, Publisher: outbound, Now: time.Now}
		registry.Expect(k.name, time.Now())

		w := &watch.Watcher{
			Name:     k.name,
			Client:   dynamicClient,
			GVR:      k.gvr,
			Handle:   reporter.Handle,
			Progress: registry,
		}

		go w.Run(ctx)
	}

	// The KaiwoQueueConfig watcher exists only to prove liveness (spec
	// §4.9's watcher roster); quota status is reported synchronously right
	// after applying the config in consumer.Dispatcher.handleQuotasAllocation,
	// so this handler has nothing further to publish.
	registry.Expect("KaiwoQueueConfig", time.Now())

	quotaWatcher := &watch.Watcher{
		Name:     "KaiwoQueueConfig",
		Client:   dynamicClient,
		GVR:      kaiwoQueueConfigGVR,
		Handle:   func(context.Context, k8swatch.EventType, *unstructured.Unstructured) {},
		Progress: registry,
	}

	go quotaWatcher.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/v1/health", registry.Handler())
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: opts.healthListenAddress, Handler: mux}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-stop
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "address", opts.healthListenAddress)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func kindsOf(kinds []watchedKind) []schema.GroupVersionResource {
	out := make([]schema.GroupVersionResource, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, k.gvr)
	}

	return out
}

func resourceExists(d discovery.DiscoveryInterface, gvr schema.GroupVersionResource) bool {
	resources, err := d.ServerResourcesForGroupVersion(gvr.GroupVersion().String())
	if err != nil {
		return false
	}

	for _, r := range resources.APIResources {
		if r.Name == gvr.Resource {
			return true
		}
	}

	return false
}

func main() {
	if err := start(); err != nil {
		log.Log.Error(err, "airm-dispatcher exited")
		os.Exit(1)
	}
}
