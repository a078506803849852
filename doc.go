// Package hdi brokers driver service implementations to cross-boundary
// callers by interface descriptor.
//
// A descriptor such as "ohos.hdi.sample.v1_0.IFoo" names an interface and its
// version. Combined with a service name it resolves to an implementation
// library inside the trusted library directory:
//
//	ohos.hdi.sample.v1_0.IFoo + sample_driver_service
//	    -> /vendor/lib64/libfoo_sample_driver_service_1.0.z.so
//
// The library must export FooImplGetInstance and should export
// FooImplRelease. The Loader opens it once, remembers both functions, and
// constructs a new instance on every Load.
//
// Two identity caches make sure an implementation object is exposed through
// at most one live wrapper:
//
//   - ObjectCollector for reference-counted wrappers. A wrapper whose count
//     has reached zero is being torn down; lookups wait until its teardown
//     calls RemoveMapping.
//   - StubCollector for services exposed as plain function tables. Stubs are
//     created on first request and destroyed on explicit RemoveStub.
//
// All of it hangs off a Broker. Generated glue with a C-like calling
// convention uses the package-level functions (LoadImplementation,
// StubCollectorGetOrNewObject, ...) which act on Default().
//
// Host-side contract notes:
//
// ServiceManager binds a service either in-process (BindPassthrough, through
// the Loader) or through the remote service manager (BindRemote). A device
// host publishes its services in a ServiceRegistry and serves it with
// ServeServiceManager; binders connect with DialServiceManager.
package hdi
