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

package notification

import (
	"github.com/onem2m-labs/cse-core/apis/onem2m"
	"github.com/onem2m-labs/cse-core/internal/eventbus"
	"github.com/onem2m-labs/cse-core/internal/resource"
)

// signalNotification is the wire envelope for verification and
// deregistration notices. The m2m:sgn naming and vrq/sur/sud fields match
// the shape exercised by the original implementation's subscription test
// suite.
type signalNotification struct {
	Sgn signalBody `json:"m2m:sgn"`
}

type signalBody struct {
	VRQ *bool  `json:"vrq,omitempty"`
	SUD *bool  `json:"sud,omitempty"`
	SUR string `json:"sur,omitempty"`
}

// eventNotification is the wire envelope for a fan-out notification
// triggered by a subscribed lifecycle event.
type eventNotification struct {
	Sgn eventSignalBody `json:"m2m:sgn"`
}

type eventSignalBody struct {
	NEV notificationEvent `json:"nev"`
	SUR string            `json:"sur,omitempty"`
}

type notificationEvent struct {
	Rep map[string]interface{} `json:"rep,omitempty"`
}

// buildNotification shapes evt.Resource's representation according to
// st.nct, per spec.md §4.4.
func (m *Manager) buildNotification(st *subscriptionState, evt eventbus.Event) eventNotification {
	body := eventNotification{Sgn: eventSignalBody{SUR: st.ri}}

	switch st.nct {
	case onem2m.NCTRIOnly:
		body.Sgn.NEV.Rep = map[string]interface{}{"m2m:uri": evt.Resource.RI()}
	case onem2m.NCTTrigger:
		// Minimal signal envelope only: no rep.
	case onem2m.NCTModifiedAttributes:
		body.Sgn.NEV.Rep = modifiedAttributesRep(evt)
	case onem2m.NCTAllAttributes:
		fallthrough
	default:
		body.Sgn.NEV.Rep = evt.Resource.AsMap()
	}

	return body
}

// modifiedAttributesRep returns only the attributes that changed in the
// triggering update (the full representation for an event that carries no
// patch), and never includes ty — spec.md §8's testable property for
// nct=modifiedAttributes.
func modifiedAttributesRep(evt eventbus.Event) map[string]interface{} {
	full := evt.Resource.AsMap()
	if len(evt.Patch) == 0 {
		rep := make(map[string]interface{}, len(full))
		for k, v := range full {
			if k != resource.AttrTy {
				rep[k] = v
			}
		}
		return rep
	}

	rep := make(map[string]interface{}, len(evt.Patch))
	for k := range evt.Patch {
		if k == resource.AttrTy {
			continue
		}
		if v, ok := full[k]; ok {
			rep[k] = v
		}
	}
	return rep
}
