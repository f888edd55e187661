package statemachine

import (
	"testing"

	"restaurant-pos-api/models"
)

func TestCanTransitionItem(t *testing.T) {
	tests := []struct {
		name    string
		from    models.ItemStatus
		to      models.ItemStatus
		actor   Actor
		wantErr bool
	}{
		{name: "start", from: models.ItemPending, to: models.ItemPreparing, actor: ActorStaff},
		{name: "ready", from: models.ItemPreparing, to: models.ItemReady, actor: ActorStaff},
		{name: "backToPreparing", from: models.ItemReady, to: models.ItemPreparing, actor: ActorManager},
		{name: "skip", from: models.ItemPending, to: models.ItemReady, actor: ActorStaff, wantErr: true},
		{name: "system", from: models.ItemPending, to: models.ItemPreparing, actor: ActorSystem, wantErr: true},
		{name: "unknown", from: "plated", to: models.ItemReady, actor: ActorStaff, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanTransitionItem(tt.from, tt.to, tt.actor)
			if (err != nil) != tt.wantErr {
				t.Errorf("CanTransitionItem() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRollUp(t *testing.T) {
	tests := []struct {
		name     string
		order    models.Order
		want     models.OrderStatus
		wantMove bool
	}{
		{
			name: "allReady",
			order: models.Order{Status: models.StatusPreparing, Items: []models.OrderItem{
				{Status: models.ItemReady}, {Status: models.ItemReady},
			}},
			want: models.StatusReady, wantMove: true,
		},
		{
			name: "oneStillCooking",
			order: models.Order{Status: models.StatusPreparing, Items: []models.OrderItem{
				{Status: models.ItemReady}, {Status: models.ItemPreparing},
			}},
			want: models.StatusPreparing,
		},
		{
			name:  "pendingOrderStays",
			order: models.Order{Status: models.StatusPending, Items: []models.OrderItem{{Status: models.ItemReady}}},
			want:  models.StatusPending,
		},
		{
			name: "readyOrderLineSentBack",
			order: models.Order{Status: models.StatusReady, Items: []models.OrderItem{
				{Status: models.ItemReady}, {Status: models.ItemPreparing},
			}},
			want: models.StatusPreparing, wantMove: true,
		},
		{
			name: "readyOrderStaysReady",
			order: models.Order{Status: models.StatusReady, Items: []models.OrderItem{
				{Status: models.ItemReady},
			}},
			want: models.StatusReady,
		},
		{
			name:  "noItems",
			order: models.Order{Status: models.StatusPreparing},
			want:  models.StatusPreparing,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, moved := RollUp(&tt.order)
			if got != tt.want || moved != tt.wantMove {
				t.Errorf("RollUp() = (%s, %v), want (%s, %v)", got, moved, tt.want, tt.wantMove)
			}
		})
	}
}

func TestValidTableStatus(t *testing.T) {
	for _, s := range models.TableStatuses {
		if err := ValidTableStatus(s); err != nil {
			t.Errorf("ValidTableStatus(%s) = %v", s, err)
		}
	}
	if err := ValidTableStatus("closed"); err != ErrUnknownTableStatus {
		t.Errorf("ValidTableStatus(closed) = %v, want ErrUnknownTableStatus", err)
	}
}
