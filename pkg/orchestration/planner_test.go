package orchestration

import (
	"context"
	"testing"
)

func instWithOps(name string, ops ...string) *Instance {
	tmpl := &Template{Name: name, Type: name, Operations: make(map[string]*ConfigurationSpec)}
	for _, op := range ops {
		tmpl.Operations[op] = newTestSpec(name+"-"+op, op)
	}
	return NewInstance(name, nil, tmpl)
}

func TestTopoOrderRespectsRequiredDependencies(t *testing.T) {
	db := instWithOps("db", "create")
	web := instWithOps("web", "create")
	web.AddRequiredDependency(db)

	order := topoOrder(web)
	dbIndex, webIndex := -1, -1
	for i, inst := range order {
		if inst == db {
			dbIndex = i
		}
		if inst == web {
			webIndex = i
		}
	}
	if dbIndex == -1 || webIndex == -1 {
		t.Fatalf("expected both instances in order, got %v", order)
	}
	if dbIndex > webIndex {
		t.Error("expected db (a required dependency) to appear before web")
	}
}

func TestDeployPlannerOrdersOperationsPerInstance(t *testing.T) {
	web := instWithOps("web", "start", "create", "configure")
	plan, err := DeployPlanner{}.Plan(context.Background(), web, &JobOptions{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Items) != 3 {
		t.Fatalf("expected 3 plan items, got %d", len(plan.Items))
	}
	gotOps := []string{plan.Items[0].Spec.Operation, plan.Items[1].Spec.Operation, plan.Items[2].Spec.Operation}
	want := []string{"create", "configure", "start"}
	for i := range want {
		if gotOps[i] != want[i] {
			t.Errorf("operation %d = %s, want %s", i, gotOps[i], want[i])
		}
	}
}

func TestDeployPlannerFiltersByInstance(t *testing.T) {
	db := instWithOps("db", "create")
	web := instWithOps("web", "create")
	web.AddRequiredDependency(db)

	plan, err := DeployPlanner{}.Plan(context.Background(), web, &JobOptions{Instance: "web"})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	for _, item := range plan.Items {
		if item.Target.Key() != "web" {
			t.Errorf("expected only web's operations, got one for %s", item.Target.Key())
		}
	}
}

func TestUndeployPlannerReversesOrder(t *testing.T) {
	db := instWithOps("db", "stop", "delete")
	web := instWithOps("web", "stop", "delete")
	web.AddRequiredDependency(db)

	plan, err := UndeployPlanner{}.Plan(context.Background(), web, &JobOptions{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Items[0].Target.Key() != "web" {
		t.Errorf("expected web to be torn down before its dependency db, got %s first", plan.Items[0].Target.Key())
	}
}

func TestPlannerForUnknownWorkflow(t *testing.T) {
	if _, err := PlannerFor("bogus"); err == nil {
		t.Error("expected an error for an unknown workflow")
	}
}
