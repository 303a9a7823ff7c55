package runner

import "os"

// TestHarnessEnv marks processes started by Orbit's own test suites.
const TestHarnessEnv = "ORBIT_TEST"

var ciEnvVars = []string{
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"BUILDKITE",
	"CIRCLECI",
	"TRAVIS",
	"JENKINS_URL",
}

// IsCI reports whether the process runs in a continuous integration service.
func IsCI() bool {
	for _, key := range ciEnvVars {
		if v := os.Getenv(key); v != "" && v != "false" && v != "0" {
			return true
		}
	}
	return false
}

// ShouldStream decides whether a target's output is forwarded live. The
// primary target always streams; in CI every target does, unless running
// under the test harness.
func ShouldStream(isPrimary bool) bool {
	if isPrimary {
		return true
	}
	_, harness := os.LookupEnv(TestHarnessEnv)
	return IsCI() && !harness
}
