// Command roostctl is the operator tool for a running roostd: it queues
// tasks for endpoints, lists the fleet, and watches a task until the
// endpoint reports its result.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/perchsec/roost/fleet"
	"github.com/perchsec/roost/record"
)

const defaultServer = "http://127.0.0.1:8443"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "post-task":
		err = postTask(os.Args[2:])
	case "endpoints":
		err = listEndpoints(os.Args[2:])
	case "watch":
		err = watchTask(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "roostctl:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: roostctl <command> [flags]

commands:
  post-task   queue a task for an endpoint
  endpoints   list registered endpoints
  watch       poll a task until the endpoint reports its result`)
}

func postTask(args []string) error {
	fs := flag.NewFlagSet("post-task", flag.ExitOnError)
	server := fs.String("server", defaultServer, "coordinator base URL")
	agentID := fs.String("agent-id", "", "target endpoint id (required)")
	instruction := fs.String("instruction", "syscall", "task instruction")
	arg := fs.String("arg", "ls -la", "argument for the instruction")
	taskID := fs.String("task-id", "", "task id (generated when omitted)")
	printPayload := fs.Bool("print-payload", false, "print the outgoing JSON payload")
	fs.Parse(args)

	if *agentID == "" {
		return fmt.Errorf("--agent-id is required")
	}
	id := *taskID
	if id == "" {
		id = uuid.NewString()
	}

	task := record.Task{
		TaskID:      id,
		AssignedAt:  record.Timestamp(),
		Instruction: *instruction,
		Arg:         *arg,
	}
	body := map[string]any{"agentid": *agentID, "task": task.Doc()}

	if *printPayload {
		out, _ := json.MarshalIndent(body, "", "  ")
		fmt.Println(string(out))
	}

	if err := post(*server+"/api/man/post_task", body); err != nil {
		return err
	}
	fmt.Println("queued task", id)
	return nil
}

func listEndpoints(args []string) error {
	fs := flag.NewFlagSet("endpoints", flag.ExitOnError)
	server := fs.String("server", defaultServer, "coordinator base URL")
	fs.Parse(args)

	var summaries []fleet.Summary
	if err := get(*server+"/api/man/endpoints", &summaries); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tHOSTNAME\tIP\tLAST SEEN\tTASKS\tPENDING\tSTALE")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%v\n",
			s.ID, s.Hostname, s.IPAddress, s.LastSeen, s.TaskCount, s.PendingCount, s.Stale)
	}
	return w.Flush()
}

func watchTask(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	server := fs.String("server", defaultServer, "coordinator base URL")
	agentID := fs.String("agent-id", "", "endpoint id (required)")
	taskID := fs.String("task-id", "", "task id to watch (required)")
	interval := fs.Duration("interval", 2*time.Second, "poll interval")
	fs.Parse(args)

	if *agentID == "" || *taskID == "" {
		return fmt.Errorf("--agent-id and --task-id are required")
	}

	url := *server + "/api/man/tasks?agentid=" + *agentID
	for {
		var tasks []record.Task
		if err := get(url, &tasks); err != nil {
			return err
		}

		for _, t := range tasks {
			if t.TaskID != *taskID {
				continue
			}
			if !t.Responded {
				break
			}
			fmt.Println("task", t.TaskID, "completed at", t.StoppedProcessingAt)
			if t.ExitCode != nil {
				fmt.Println("exit code:", *t.ExitCode)
			}
			if t.Stdout != "" {
				fmt.Println("stdout:\n" + t.Stdout)
			}
			if t.Stderr != "" {
				fmt.Println("stderr:\n" + t.Stderr)
			}
			return nil
		}

		time.Sleep(*interval)
	}
}

func post(url string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", url, resp.Status)
	}
	return nil
}

func get(url string, v any) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
