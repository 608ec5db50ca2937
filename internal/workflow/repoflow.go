// ABOUTME: Canned repository bootstrap flow: repo, initial commit, branch, file, pull request
// ABOUTME: Later steps pick up the created repository's name from the first step's output

package workflow

import "fmt"

// Toolset names on the GitHub MCP server that the bootstrap flow touches.
const (
	ToolsetRepos        = "repos"
	ToolsetPullRequests = "pull_requests"
)

// RepoFlow parameterizes the full repository bootstrap workflow.
type RepoFlow struct {
	Owner       string
	Repo        string
	Private     bool
	Description string

	Branch      string // defaults to feature/bootstrap
	FilePath    string // defaults to notes.md
	FileContent string

	PRTitle string
	PRBody  string
}

// Steps builds the ordered step list. The repository name flows from the
// create step's recorded output into every later step, so a server-side
// rename (or name normalization) propagates automatically.
func (f RepoFlow) Steps() []Step {
	branch := f.Branch
	if branch == "" {
		branch = "feature/bootstrap"
	}
	filePath := f.FilePath
	if filePath == "" {
		filePath = "notes.md"
	}
	fileContent := f.FileContent
	if fileContent == "" {
		fileContent = "# Notes\n\nAdded on branch " + branch + ".\n"
	}
	prTitle := f.PRTitle
	if prTitle == "" {
		prTitle = "Add " + filePath
	}
	prBody := f.PRBody
	if prBody == "" {
		prBody = fmt.Sprintf("Merges %s into main.", branch)
	}

	return []Step{
		{
			Name:    "create-repository",
			Toolset: ToolsetRepos,
			Tool:    "create_repository",
			Args: map[string]any{
				"name":        f.Repo,
				"private":     f.Private,
				"description": f.Description,
				"autoInit":    false,
			},
		},
		{
			Name:    "initial-commit",
			Toolset: ToolsetRepos,
			Tool:    "create_or_update_file",
			Args: map[string]any{
				"owner":   f.Owner,
				"repo":    "$steps.create-repository.name",
				"path":    "README.md",
				"message": "Initial commit",
				"content": "# " + f.Repo + "\n",
				"branch":  "main",
			},
		},
		{
			Name:    "create-branch",
			Toolset: ToolsetRepos,
			Tool:    "create_branch",
			Args: map[string]any{
				"owner":  f.Owner,
				"repo":   "$steps.create-repository.name",
				"branch": branch,
				"base":   "main",
			},
		},
		{
			Name:    "add-file",
			Toolset: ToolsetRepos,
			Tool:    "create_or_update_file",
			Args: map[string]any{
				"owner":   f.Owner,
				"repo":    "$steps.create-repository.name",
				"path":    filePath,
				"message": "Add " + filePath,
				"content": fileContent,
				"branch":  branch,
			},
		},
		{
			Name:    "open-pull-request",
			Toolset: ToolsetPullRequests,
			Tool:    "create_pull_request",
			Args: map[string]any{
				"owner": f.Owner,
				"repo":  "$steps.create-repository.name",
				"title": prTitle,
				"body":  prBody,
				"head":  branch,
				"base":  "main",
			},
		},
	}
}
