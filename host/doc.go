// Package host connects the renderer to a GPU device and a presentation
// surface.
//
// A Host bundles the two: it satisfies gpucontext.DeviceProvider for device
// and queue access, and Surface for per-frame texture acquisition and
// presentation. Hosts are opened by name through a registry; the built-in
// "headless" host runs on the noop hal backend:
//
//	h, err := host.NewByName("headless", host.Options{Width: 800, Height: 600})
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
package host
