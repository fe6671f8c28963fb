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

package typeregistry

import (
	"github.com/onem2m-labs/cse-core/apis/onem2m"
	"github.com/onem2m-labs/cse-core/internal/oerrors"
	"github.com/onem2m-labs/cse-core/internal/resource"
)

// Type-specific attribute names. Common attributes live in package resource.
const (
	attrAEI = "aei"
	attrCSI = "csi"
	attrAPI = "api"
	attrRR  = "rr"
	attrSRV = "srv"
	attrPOA = "poa"
	attrMNI = "mni"
	attrMBS = "mbs"
	attrCNF = "cnf"
	attrCON = "con"
	attrCS  = "cs"
	attrNU  = "nu"
	attrENC = "enc"
	attrNCT = "nct"
	attrEXC = "exc"
	attrSU  = "su"
	attrPV  = "pv"
	attrPVS = "pvs"
)

func init() {
	register(&Policy{
		Type:            onem2m.TypeCSEBase,
		Mandatory:       []string{"csi"},
		Optional:        []string{},
		AllowedChildren: []onem2m.ResourceType{onem2m.TypeAE, onem2m.TypeContainer, onem2m.TypeAccessControlPolicy, onem2m.TypeNode, onem2m.TypeRemoteCSE},
	})

	register(&Policy{
		Type:               onem2m.TypeAE,
		Mandatory:          []string{attrAPI},
		Optional:           []string{attrRR, attrSRV, attrPOA},
		ReadOnly:           []string{attrAEI},
		Immutable:          []string{attrAPI},
		AnnouncedMandatory: []string{attrAPI, attrRR},
		AllowedChildren:    []onem2m.ResourceType{onem2m.TypeContainer, onem2m.TypeSubscription, onem2m.TypeAccessControlPolicy},
		Announced:          onem2m.TypeAEAnnc,
	})

	register(&Policy{
		Type:               onem2m.TypeContainer,
		Optional:           []string{attrMNI, attrMBS, attrCNF},
		AnnouncedMandatory: []string{},
		AllowedChildren:    []onem2m.ResourceType{onem2m.TypeContainer, onem2m.TypeContentInstance, onem2m.TypeSubscription},
		Announced:          onem2m.TypeContainerAnnc,
	})

	register(&Policy{
		Type:      onem2m.TypeContentInstance,
		Mandatory: []string{attrCON},
		Optional:  []string{attrCNF},
		ReadOnly:  []string{attrCS},
		Immutable: []string{attrCON, attrCNF},
	})

	register(&Policy{
		Type:           onem2m.TypeSubscription,
		Mandatory:      []string{attrNU, attrENC},
		Optional:       []string{attrNCT, attrEXC, attrSU},
		CreatorBearing: true,
		Validate:       validateSubscription,
	})

	register(&Policy{
		Type:      onem2m.TypeAccessControlPolicy,
		Mandatory: []string{attrPV, attrPVS},
	})

	register(&Policy{
		Type:            onem2m.TypeNode,
		Optional:        []string{},
		AllowedChildren: []onem2m.ResourceType{onem2m.TypeMgmtObj},
	})

	register(&Policy{
		Type: onem2m.TypeMgmtObj,
	})

	register(&Policy{
		Type:            onem2m.TypeRemoteCSE,
		Mandatory:       []string{attrCSI},
		Optional:        []string{attrPOA},
		ReadOnly:        []string{},
		AllowedChildren: []onem2m.ResourceType{onem2m.TypeAEAnnc, onem2m.TypeContainerAnnc},
	})

	register(&Policy{
		Type:           onem2m.TypeRequest,
		CreatorBearing: true,
	})

	register(&Policy{
		Type:      onem2m.TypeAEAnnc,
		Mandatory: []string{resource.AttrLnk, attrAPI},
		Optional:  []string{attrRR},
		ReadOnly:  []string{resource.AttrLnk},
	})

	register(&Policy{
		Type:      onem2m.TypeContainerAnnc,
		Mandatory: []string{resource.AttrLnk},
		ReadOnly:  []string{resource.AttrLnk},
	})
}

// validateSubscription enforces spec.md §4.4's "nu non-empty" rule at the
// attribute-schema level; the verification handshake itself is the
// notification manager's job, not the registry's.
func validateSubscription(r *resource.Resource) error {
	if len(r.StringArrayAttr(attrNU)) == 0 {
		return oerrors.Status(onem2m.BadRequest, "subscription nu must be non-empty")
	}
	return nil
}
