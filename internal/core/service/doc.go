// Package service provides the domain services for sessguard.
//
// Services contain the business logic and orchestrate operations on
// domain models. Storage and external collaborators are consumed
// through narrow interfaces defined here, so the core stays testable
// without infrastructure.
package service
