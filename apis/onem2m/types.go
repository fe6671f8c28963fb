/*
Copyright 2026 The CSE-Core Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package onem2m holds the shared oneM2M vocabulary: resource type tags,
// response status codes, permission bits, and subscription enumerations
// referenced throughout the CSE core.
package onem2m

// ResourceType tags every resource in the tree with its oneM2M type.
type ResourceType int

// Resource types. Values are this module's own sequential tags
// (CSEBase=1 through ContainerAnnc=12); they are not the oneM2M TS-0004
// numeric type codes.
const (
	TypeUnknown ResourceType = iota
	TypeCSEBase
	TypeAE
	TypeContainer
	TypeContentInstance
	TypeSubscription
	TypeAccessControlPolicy
	TypeNode
	TypeMgmtObj
	TypeRemoteCSE
	TypeRequest
	TypeAEAnnc
	TypeContainerAnnc
)

// String renders a ResourceType using its short oneM2M resource name.
func (t ResourceType) String() string {
	switch t {
	case TypeCSEBase:
		return "CSEBase"
	case TypeAE:
		return "AE"
	case TypeContainer:
		return "Container"
	case TypeContentInstance:
		return "ContentInstance"
	case TypeSubscription:
		return "Subscription"
	case TypeAccessControlPolicy:
		return "AccessControlPolicy"
	case TypeNode:
		return "Node"
	case TypeMgmtObj:
		return "MgmtObj"
	case TypeRemoteCSE:
		return "RemoteCSE"
	case TypeRequest:
		return "Request"
	case TypeAEAnnc:
		return "AEAnnc"
	case TypeContainerAnnc:
		return "ContainerAnnc"
	default:
		return "Unknown"
	}
}

// IsAnnounced reports whether t is the announced ("Annc") shadow variant
// of another type.
func (t ResourceType) IsAnnounced() bool {
	return t == TypeAEAnnc || t == TypeContainerAnnc
}

// Announced returns the announced shadow variant of t, and false if t has
// none.
func (t ResourceType) Announced() (ResourceType, bool) {
	switch t {
	case TypeAE:
		return TypeAEAnnc, true
	case TypeContainer:
		return TypeContainerAnnc, true
	default:
		return TypeUnknown, false
	}
}

// Registerable reports whether resources of this type pass through the
// Registration Manager's admission hook on create.
func (t ResourceType) Registerable() bool {
	return t == TypeAE || t == TypeRemoteCSE || t == TypeRequest
}

// ResponseStatusCode is the oneM2M response status code set (TS-0004
// table 6.2.1.1-1), restricted to the codes this CSE core can return.
type ResponseStatusCode int

// Response status codes.
const (
	OK                                 ResponseStatusCode = 2000
	Created                            ResponseStatusCode = 2001
	Deleted                            ResponseStatusCode = 2002
	Updated                            ResponseStatusCode = 2004
	BadRequest                         ResponseStatusCode = 4000
	OriginatorHasNoPrivilege           ResponseStatusCode = 4103
	InvalidChildResourceType           ResponseStatusCode = 4108
	NotFound                           ResponseStatusCode = 4004
	OperationNotAllowed                ResponseStatusCode = 4005
	NameAlreadyPresent                 ResponseStatusCode = 4105
	AppRuleValidationFailed            ResponseStatusCode = 4126
	OriginatorHasAlreadyRegistered     ResponseStatusCode = 4127
	SubscriptionVerificationInitFailed ResponseStatusCode = 4139
	TargetNotReachable                 ResponseStatusCode = 5103
	InternalServerError                ResponseStatusCode = 5000
)

// String names the status code the way oneM2M specs do, for logging.
func (c ResponseStatusCode) String() string {
	switch c {
	case OK:
		return "OK"
	case Created:
		return "created"
	case Deleted:
		return "deleted"
	case Updated:
		return "updated"
	case BadRequest:
		return "badRequest"
	case OriginatorHasNoPrivilege:
		return "originatorHasNoPrivilege"
	case InvalidChildResourceType:
		return "invalidChildResourceType"
	case NotFound:
		return "notFound"
	case OperationNotAllowed:
		return "operationNotAllowed"
	case NameAlreadyPresent:
		return "nameAlreadyPresent"
	case AppRuleValidationFailed:
		return "appRuleValidationFailed"
	case OriginatorHasAlreadyRegistered:
		return "originatorHasAlreadyRegistered"
	case SubscriptionVerificationInitFailed:
		return "subscriptionVerificationInitiationFailed"
	case TargetNotReachable:
		return "targetNotReachable"
	case InternalServerError:
		return "internalServerError"
	default:
		return "unknown"
	}
}

// Permission is a bitmask of oneM2M access-control operations.
type Permission int

// Permission bits. A rule's pv/pvs mask is the bitwise OR of these.
const (
	PermissionCreate Permission = 1 << iota
	PermissionRetrieve
	PermissionUpdate
	PermissionDelete
	PermissionNotify
	PermissionDiscovery
)

// Has reports whether the mask grants p.
func (m Permission) Has(p Permission) bool { return m&p != 0 }

// NetType is an entry in a subscription's enc.net event-notification
// criteria: the kind of lifecycle event a subscription wants to hear
// about.
type NetType int

// Notification event types (oneM2M TS-0004 net enumeration, restricted to
// the subset this CSE emits).
const (
	NetUpdateResource NetType = iota + 1
	NetDeleteResource
	NetCreateDirectChild
	NetDeleteDirectChild
	NetRetrieve
)

// NotificationContentType shapes the nev.rep payload of a notification.
type NotificationContentType int

// Notification content types.
const (
	NCTAllAttributes NotificationContentType = iota
	NCTModifiedAttributes
	NCTRIOnly
	NCTTrigger
)

// CSEType is the tier of a CSE in the oneM2M deployment hierarchy.
type CSEType string

// CSE tiers. An ASN ("Application Service Node") CSE is a leaf: it may
// not register child CSEs.
const (
	CSETypeIN  CSEType = "IN"
	CSETypeMN  CSEType = "MN"
	CSETypeASN CSEType = "ASN"
)
