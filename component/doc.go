// Package component defines the lifecycle interface spacekit clients
// implement so applications can start, stop and health-check them alongside
// their other resources.
//
//	reg := component.NewRegistry()
//	_ = reg.Register(httpclient.NewComponent("spacekit", opts...))
//	if err := reg.StartAll(ctx); err != nil { ... }
//	defer reg.StopAll(ctx)
package component
