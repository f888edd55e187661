package statemachine

import (
	"errors"
	"reflect"
	"testing"

	"restaurant-pos-api/models"
)

func labels(actions []Action) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.Label
	}
	return out
}

func TestActionsFor(t *testing.T) {
	tests := []struct {
		name   string
		status models.OrderStatus
		actor  Actor
		want   []string
	}{
		{name: "pendingStaff", status: models.StatusPending, actor: ActorStaff, want: []string{"Start Preparing"}},
		{name: "preparingStaff", status: models.StatusPreparing, actor: ActorStaff, want: []string{"Mark Ready", "Back"}},
		{name: "readyStaff", status: models.StatusReady, actor: ActorStaff, want: []string{"Mark Delivered", "Back"}},
		{name: "deliveredStaff", status: models.StatusDelivered, actor: ActorStaff, want: []string{}},
		{name: "completedStaff", status: models.StatusCompleted, actor: ActorStaff, want: []string{}},
		{name: "pendingManager", status: models.StatusPending, actor: ActorManager, want: []string{"Start Preparing", "Cancel"}},
		{name: "preparingManager", status: models.StatusPreparing, actor: ActorManager, want: []string{"Mark Ready", "Back", "Cancel"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := labels(ActionsFor(tt.status, tt.actor))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ActionsFor(%s, %s) = %v, want %v", tt.status, tt.actor, got, tt.want)
			}
		})
	}
}

func TestActionsMatchCanTransition(t *testing.T) {
	statuses := []models.OrderStatus{
		models.StatusPending, models.StatusPreparing, models.StatusReady,
		models.StatusDelivered, models.StatusCompleted, models.StatusCancelled,
	}
	for _, actor := range []Actor{ActorStaff, ActorManager, ActorSystem} {
		for _, s := range statuses {
			for _, a := range ActionsFor(s, actor) {
				if err := CanTransition(s, a.To, actor); err != nil {
					t.Errorf("action %q from %s for %s rejected: %v", a.Label, s, actor, err)
				}
			}
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    models.OrderStatus
		to      models.OrderStatus
		actor   Actor
		wantErr bool
	}{
		{name: "staffStarts", from: models.StatusPending, to: models.StatusPreparing, actor: ActorStaff},
		{name: "staffSkipsAhead", from: models.StatusPending, to: models.StatusReady, actor: ActorStaff, wantErr: true},
		{name: "staffBack", from: models.StatusReady, to: models.StatusPreparing, actor: ActorStaff},
		{name: "staffCannotComplete", from: models.StatusDelivered, to: models.StatusCompleted, actor: ActorStaff, wantErr: true},
		{name: "systemReopensReady", from: models.StatusReady, to: models.StatusPreparing, actor: ActorSystem},
		{name: "systemCompletes", from: models.StatusDelivered, to: models.StatusCompleted, actor: ActorSystem},
		{name: "staffCannotCancel", from: models.StatusPending, to: models.StatusCancelled, actor: ActorStaff, wantErr: true},
		{name: "managerCancels", from: models.StatusPreparing, to: models.StatusCancelled, actor: ActorManager},
		{name: "managerInheritsStaff", from: models.StatusReady, to: models.StatusDelivered, actor: ActorManager},
		{name: "cannotCancelReady", from: models.StatusReady, to: models.StatusCancelled, actor: ActorManager, wantErr: true},
		{name: "terminalCompleted", from: models.StatusCompleted, to: models.StatusPending, actor: ActorManager, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanTransition(tt.from, tt.to, tt.actor)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CanTransition() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("error %v should wrap ErrInvalidTransition", err)
			}
		})
	}
}

func TestTransitionErrorListsValidStates(t *testing.T) {
	err := CanTransition(models.StatusCompleted, models.StatusPending, ActorStaff)
	if err == nil {
		t.Fatal("expected error")
	}
	want := "invalid transition: completed → pending is not allowed for actor 'staff'. Valid transitions from completed are: none (terminal state)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIsKitchenAndTerminal(t *testing.T) {
	if !IsKitchen(models.StatusReady) || IsKitchen(models.StatusDelivered) {
		t.Error("kitchen board must show ready and hide delivered orders")
	}
	if !IsTerminal(models.StatusCompleted) || !IsTerminal(models.StatusCancelled) {
		t.Error("completed and cancelled must be terminal")
	}
	if IsTerminal(models.StatusDelivered) {
		t.Error("delivered still awaits payment")
	}
}

func TestActorForRole(t *testing.T) {
	tests := []struct {
		role models.UserRole
		want Actor
	}{
		{models.RoleAdmin, ActorManager},
		{models.RoleManager, ActorManager},
		{models.RoleKitchen, ActorStaff},
		{models.RoleWaiter, ActorStaff},
		{models.RoleCashier, ActorStaff},
	}
	for _, tt := range tests {
		if got := ActorForRole(tt.role); got != tt.want {
			t.Errorf("ActorForRole(%s) = %s, want %s", tt.role, got, tt.want)
		}
	}
}
