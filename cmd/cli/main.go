package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/yourorg/hrmslite/internal/handler"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}
	os.Exit(run(os.Args[1:], os.Stdout, newAPIClient(getAPIURL())))
}

// run executes one command and returns the process exit code.
func run(args []string, out io.Writer, c *apiClient) int {
	command := args[0]
	rest := args[1:]

	var err error
	switch command {
	case "employee":
		err = handleEmployee(rest, out, c)
	case "attendance":
		err = handleAttendance(rest, out, c)
	case "help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(out, "unknown command: %s\n", command)
		printUsage(out)
		return 1
	}

	if err != nil {
		fmt.Fprintf(out, "✗ %v\n", err)
		return 1
	}
	return 0
}

func handleEmployee(args []string, out io.Writer, c *apiClient) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: hrms employee <list|get|create|delete>")
	}

	switch args[0] {
	case "list":
		employees, err := c.listEmployees()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEMPLOYEE ID\tNAME\tEMAIL\tDEPARTMENT")
		for _, e := range employees {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.EmployeeID, e.FullName, e.Email, e.Department)
		}
		return w.Flush()

	case "get":
		if len(args) < 2 {
			return fmt.Errorf("usage: hrms employee get <id>")
		}
		e, err := c.getEmployee(args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s  %s  %s <%s>  %s\n", e.ID, e.EmployeeID, e.FullName, e.Email, e.Department)
		return nil

	case "create":
		fs := flag.NewFlagSet("employee create", flag.ContinueOnError)
		fs.SetOutput(out)
		id := fs.String("id", "", "business employee ID")
		name := fs.String("name", "", "full name")
		email := fs.String("email", "", "email address")
		dept := fs.String("department", "", "department")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}

		e, err := c.createEmployee(handler.EmployeeRequest{
			EmployeeID: *id,
			FullName:   *name,
			Email:      *email,
			Department: *dept,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Employee created: %s (%s)\n", e.EmployeeID, e.ID)
		return nil

	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: hrms employee delete <id>")
		}
		msg, err := c.deleteEmployee(args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ %s\n", msg)
		return nil
	}
	return fmt.Errorf("unknown employee command: %s", args[0])
}

func handleAttendance(args []string, out io.Writer, c *apiClient) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: hrms attendance <list|get|mark|delete|summary>")
	}

	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("attendance list", flag.ContinueOnError)
		fs.SetOutput(out)
		employee := fs.String("employee", "", "employee ID (system or business)")
		from := fs.String("from", "", "first day, YYYY-MM-DD")
		to := fs.String("to", "", "last day, YYYY-MM-DD")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}

		records, err := c.listAttendance(*employee, *from, *to)
		if err != nil {
			return err
		}
		printAttendance(out, records)
		return nil

	case "mark":
		fs := flag.NewFlagSet("attendance mark", flag.ContinueOnError)
		fs.SetOutput(out)
		employee := fs.String("employee", "", "employee ID (system or business)")
		date := fs.String("date", "", "day, YYYY-MM-DD")
		status := fs.String("status", "Present", "Present or Absent")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}

		rec, err := c.markAttendance(handler.AttendanceRequest{
			EmployeeID: *employee,
			Date:       *date,
			Status:     *status,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ %s marked %s on %s\n", rec.EmployeeID, rec.Status, rec.Date)
		return nil

	case "get":
		if len(args) < 2 {
			return fmt.Errorf("usage: hrms attendance get <id>")
		}
		rec, err := c.getAttendance(args[1])
		if err != nil {
			return err
		}
		printAttendance(out, []handler.AttendanceResponse{*rec})
		return nil

	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: hrms attendance delete <id>")
		}
		msg, err := c.deleteAttendance(args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ %s\n", msg)
		return nil

	case "summary":
		if len(args) < 2 {
			return fmt.Errorf("usage: hrms attendance summary <employee-id>")
		}
		s, err := c.summary(args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s (%s): %d days, %d present, %d absent, %.2f%% attendance\n",
			s.Employee.FullName, s.Employee.EmployeeID, s.TotalDays, s.TotalPresent, s.TotalAbsent, s.AttendanceRate)
		printAttendance(out, s.Records)
		return nil
	}
	return fmt.Errorf("unknown attendance command: %s", args[0])
}

func printAttendance(out io.Writer, records []handler.AttendanceResponse) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tEMPLOYEE\tNAME\tSTATUS")
	for _, r := range records {
		employee, name := r.EmployeeID, r.FullName
		if employee == "" {
			employee, name = "-", "(deleted)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Date, employee, name, r.Status)
	}
	w.Flush()
}

func getAPIURL() string {
	if url := os.Getenv("HRMS_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func printUsage(out io.Writer) {
	fmt.Fprint(out, `HRMS Lite CLI

Usage:
  hrms <command> [options]

Commands:
  employee    Employee operations (list, get, create, delete)
  attendance  Attendance operations (list, get, mark, delete, summary)
  help        Show this help message

Environment Variables:
  HRMS_API    API endpoint (default: http://localhost:8080/api)

Examples:
  hrms employee create -id E1 -name "Ann Lee" -email ann@x.com -department Eng
  hrms attendance mark -employee E1 -date 2024-01-10 -status Present
  hrms attendance list -employee E1 -from 2024-01-01 -to 2024-01-31
  hrms attendance summary E1
`)
}
