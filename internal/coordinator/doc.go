// Package coordinator schedules aggregation runs and publishes the resulting registries.
//
// An Aggregator performs one run: it creates a fresh combiner.Run, reads every configured
// engine group and then every local path, and registers the sorted entries into a new
// registry.Registry. The Coordinator calls it once on Start and then once per refresh
// interval, with ±10% jitter so instances sharing a configuration do not poll engines in
// lockstep.
//
// # Publishing
//
// The registry of a run replaces the one in the registry.Holder unless the run is Failed,
// meaning sources failed and not a single document could be read. A Failed run keeps the
// previously published registry so readers never observe an empty registry caused by an
// engine outage.
//
// # Status
//
// Each run saves a Running status when it starts and its final status when it ends through
// status.StatusPersistence. AttemptCount counts the runs since the last Complete run;
// LastSuccess is the time a registry was last published. Persistence errors are logged and
// never stop a run.
//
// # Usage
//
//	aggregator := coordinator.NewAggregator(c, cfg, tracer)
//	coord := coordinator.New(aggregator, holder, persistence, cfg.GetRegistryName(),
//	    coordinator.WithInterval(cfg.GetRefreshInterval()))
//
//	go coord.Start(ctx)
//	defer coord.Stop()
package coordinator
