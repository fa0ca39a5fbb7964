// Command test_cli runs pyscan under a parent span, to check that
// spans propagate through DD_TRACE_ID and DD_SPAN_ID.
package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/replit/pyscan/internal/trace"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

func main() {
	root := "."
	if len(os.Args) > 1 {
		root = os.Args[1]
	}

	tracer.Start(
		tracer.WithService("pyscan_wrapper"),
	)
	defer tracer.Stop()

	span := tracer.StartSpan("pyscan_wrapper")
	defer span.Finish()

	cmd := exec.Command("pyscan", "modules", root)
	cmd.Env = os.Environ()
	cmd.Env = append(cmd.Env, "PYSCAN_TRACE=1")
	cmd.Env = append(cmd.Env, trace.PropagationEnv(span)...)

	stdout, err := cmd.Output()

	if err != nil {
		fmt.Println(err.Error())
		return
	}

	fmt.Println(string(stdout))
}
