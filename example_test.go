package swarmflow_test

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/swarmflow/swarmflow"
)

// Defining a step with a conditional successor and executing it shows the
// chaining decision without any external stores.
func ExampleEngine_ExecuteStep() {
	ctx := context.Background()
	eng := swarmflow.NewInMemoryEngine(swarmflow.Options{
		CallbackBase: "http://app:8000",
		Logger:       log.New(io.Discard, "", 0),
	})

	_ = eng.DefineStep(ctx, swarmflow.StepDefinition{
		Name: "submit_order",
		Operations: []swarmflow.Operation{
			{Table: "orders", Fields: map[string]string{"total": "real"}},
		},
		NextStep: &swarmflow.NextStep{
			Step:   "review_order",
			Form:   "order_review",
			Type:   swarmflow.ModeHuman,
			Fields: []string{"approved"},
			Conditions: swarmflow.Conditions{
				"orders": {"total": swarmflow.Condition{Op: "gt", Value: float64(100)}},
			},
		},
	})

	big, _ := eng.ExecuteStep(ctx, "submit_order", map[string]any{"total": float64(250)})
	small, _ := eng.ExecuteStep(ctx, "submit_order", map[string]any{"total": float64(50)})

	fmt.Println(big.NextStep)
	fmt.Println(small.NextStep)
	// Output:
	// spawned
	// conditions-not-met
}
