// Package collab defines the narrow interfaces through which the
// account and session services talk to the outside world: outbound
// mail, credential validation, blob storage for avatars, and external
// identity providers. Services accept the interfaces; concrete
// adapters live here and in subpackages so swapping a vendor never
// touches the core flows.
package collab
