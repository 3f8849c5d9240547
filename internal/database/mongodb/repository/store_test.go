package repository

import (
	"context"
	"errors"
	"strings"
	"testing"

	"opsboard/internal/core"
	"opsboard/internal/rawstore"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantUnavailable bool
		wantDuplicate   bool
	}{
		{
			name:          "duplicate key",
			err:           mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}}},
			wantDuplicate: true,
		},
		{
			name:          "duplicate key in bulk write",
			err:           mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{{WriteError: mongo.WriteError{Code: 11000}}}},
			wantDuplicate: true,
		},
		{
			name:            "network error",
			err:             mongo.CommandError{Code: 6, Labels: []string{"NetworkError"}},
			wantUnavailable: true,
		},
		{
			name:            "deadline",
			err:             context.DeadlineExceeded,
			wantUnavailable: true,
		},
		{
			name:            "transient transaction",
			err:             mongo.CommandError{Code: 112, Name: "WriteConflict", Labels: []string{"TransientTransactionError"}},
			wantUnavailable: true,
		},
		{
			name: "bad filter",
			err:  mongo.CommandError{Code: 2, Name: "BadValue", Message: "unknown operator: $foo"},
		},
		{
			name: "decode",
			err:  errors.New("cannot decode string into an int32"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("insertMany", core.MongoCollectionSalesLineItems, tt.err)
			if !strings.Contains(got.Error(), tt.err.Error()) {
				t.Fatalf("cause lost: %v", got)
			}
			if errors.Is(got, rawstore.ErrUnavailable) != tt.wantUnavailable {
				t.Fatalf("unavailable: got %v want %v (%v)", !tt.wantUnavailable, tt.wantUnavailable, got)
			}
			if errors.Is(got, rawstore.ErrDuplicateKey) != tt.wantDuplicate {
				t.Fatalf("duplicate: got %v want %v (%v)", !tt.wantDuplicate, tt.wantDuplicate, got)
			}
		})
	}
}
