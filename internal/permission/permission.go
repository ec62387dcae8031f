// Package permission decides, from the acting user's role and affiliation and
// a request's current state, whether a lifecycle action is allowed. All
// functions are pure: no store access, no I/O, deterministic given their
// inputs.
package permission

import (
	"schoolhub/internal/model"
)

// Decision is an allow/deny outcome with a human-readable reason on deny.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// hasAuthorityOver reports whether the actor has administrative authority over
// the request's school: group admins over every school in their group, school
// admins only over their own school.
func hasAuthorityOver(actor model.Actor, req model.ResourceRequest) bool {
	switch actor.Role {
	case model.RoleGroupAdmin:
		return actor.SchoolGroupID == req.SchoolGroupID
	case model.RoleSchoolAdmin:
		return actor.SchoolID == req.SchoolID
	}
	return false
}

// CanApproveOrReject allows administrative roles with authority over the
// request's school, and only while the request is still pending.
func CanApproveOrReject(actor model.Actor, req model.ResourceRequest) Decision {
	if req.Status != model.RequestStatusPending {
		return deny("only pending requests can be approved or rejected")
	}
	if !hasAuthorityOver(actor, req) {
		return deny("approving requires school or group administrative authority")
	}
	return allow()
}

// CanComplete allows the same authority as approval, only while approved.
func CanComplete(actor model.Actor, req model.ResourceRequest) Decision {
	if req.Status != model.RequestStatusApproved {
		return deny("only approved requests can be completed")
	}
	if !hasAuthorityOver(actor, req) {
		return deny("completing requires school or group administrative authority")
	}
	return allow()
}

// CanEdit allows the original requester while the request is still pending,
// or administrative roles any time before completion.
func CanEdit(actor model.Actor, req model.ResourceRequest) Decision {
	if req.Status == model.RequestStatusCompleted {
		return deny("completed requests cannot be edited")
	}
	if actor.ID == req.RequesterID && req.Status == model.RequestStatusPending {
		return allow()
	}
	if hasAuthorityOver(actor, req) {
		return allow()
	}
	return deny("only the requester of a pending request or an administrator may edit")
}

// CanDelete allows administrative roles; requesters may delete only their own
// pending requests.
func CanDelete(actor model.Actor, req model.ResourceRequest) Decision {
	if hasAuthorityOver(actor, req) {
		return allow()
	}
	if actor.ID == req.RequesterID && req.Status == model.RequestStatusPending {
		return allow()
	}
	return deny("only an administrator or the requester of a pending request may delete")
}

// CanViewScope restricts visibility: school-level roles see only their own
// school's requests, group-level roles see the whole group.
func CanViewScope(actor model.Actor, req model.ResourceRequest) Decision {
	switch actor.Role {
	case model.RoleGroupAdmin:
		if actor.SchoolGroupID == req.SchoolGroupID {
			return allow()
		}
		return deny("request belongs to another school group")
	case model.RoleSchoolAdmin, model.RoleStaff:
		if actor.SchoolID == req.SchoolID {
			return allow()
		}
		return deny("request belongs to another school")
	}
	return deny("unknown role")
}
