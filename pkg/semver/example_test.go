package semver_test

import (
	"fmt"

	"github.com/matzehuels/peerguard/pkg/semver"
)

func ExamplePickTarget() {
	for _, policy := range semver.Policies {
		target, ok := semver.PickTarget("^18.2.0", "19.0.0", policy)
		fmt.Println(policy, target, ok)
	}
	// Output:
	// patch  false
	// minor  false
	// major 19.0.0 true
	// latest 19.0.0 true
}

func ExampleApplyRangeStyle() {
	fmt.Println(semver.ApplyRangeStyle("^18.2.0", "19.0.0"))
	fmt.Println(semver.ApplyRangeStyle("~1.4.2", "1.4.9"))
	fmt.Println(semver.ApplyRangeStyle("1.x", "2.0.0"))
	// Output:
	// ^19.0.0
	// ~1.4.9
	// 2.0.0
}

func ExampleClassifyDiff() {
	fmt.Println(semver.ClassifyDiff("^18.2.0", "18.2.1"))
	fmt.Println(semver.ClassifyDiff("^18.2.0", "18.3.1"))
	fmt.Println(semver.ClassifyDiff("^18.2.0", "19.0.0"))
	// Output:
	// patch
	// minor
	// major
}
