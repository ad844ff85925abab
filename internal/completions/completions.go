package completions

import (
	"fmt"
	"strings"
)

// Bash generates bash completion script
func Bash() string {
	return `# todoscan bash completion script
# Add to ~/.bashrc: eval "$(todoscan completions bash)"

_todoscan_completions() {
    local cur prev commands
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    commands="scan history show pick start export prune completions update debug help version"

    case "${prev}" in
        todoscan)
            COMPREPLY=( $(compgen -W "${commands}" -- "${cur}") )
            return 0
            ;;
        scan)
            # Complete with directories
            COMPREPLY=( $(compgen -d -- "${cur}") )
            return 0
            ;;
        completions)
            COMPREPLY=( $(compgen -W "bash zsh fish" -- "${cur}") )
            return 0
            ;;
        prune)
            COMPREPLY=( $(compgen -W "--dry-run" -- "${cur}") )
            return 0
            ;;
        update)
            COMPREPLY=( $(compgen -W "--check" -- "${cur}") )
            return 0
            ;;
        *)
            ;;
    esac

    # Default to commands if nothing else matches
    COMPREPLY=( $(compgen -W "${commands}" -- "${cur}") )
}

complete -F _todoscan_completions todoscan
`
}

// Zsh generates zsh completion script
func Zsh() string {
	return `#compdef todoscan
# todoscan zsh completion script
# Add to ~/.zshrc: eval "$(todoscan completions zsh)"

_todoscan() {
    local -a commands

    commands=(
        'scan:Scan a directory tree for TODO markers'
        'history:List recent recorded runs'
        'show:Show findings of a recorded run'
        'pick:Interactive finding picker'
        'start:Open a review session for the latest run'
        'export:Export run history to YAML'
        'prune:Remove runs whose root no longer exists'
        'update:Update to latest version'
        'debug:Show debug information'
        'completions:Generate shell completions'
        'help:Show help'
        'version:Show version'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case $state in
        command)
            _describe -t commands 'todoscan commands' commands
            ;;
        args)
            case $words[2] in
                scan)
                    _files -/
                    ;;
                completions)
                    _values 'shells' 'bash' 'zsh' 'fish'
                    ;;
                prune)
                    _values 'flags' '--dry-run[preview changes]'
                    ;;
                update)
                    _values 'flags' '--check[check only]'
                    ;;
            esac
            ;;
    esac
}

_todoscan "$@"
`
}

// Fish generates fish completion script
func Fish() string {
	return `# todoscan fish completion script
# Add to ~/.config/fish/completions/todoscan.fish

# Disable file completion by default
complete -c todoscan -f

# Commands
complete -c todoscan -n "__fish_use_subcommand" -a "scan" -d "Scan a directory tree for TODO markers"
complete -c todoscan -n "__fish_use_subcommand" -a "history" -d "List recent recorded runs"
complete -c todoscan -n "__fish_use_subcommand" -a "show" -d "Show findings of a recorded run"
complete -c todoscan -n "__fish_use_subcommand" -a "pick" -d "Interactive finding picker"
complete -c todoscan -n "__fish_use_subcommand" -a "start" -d "Open a review session"
complete -c todoscan -n "__fish_use_subcommand" -a "export" -d "Export run history to YAML"
complete -c todoscan -n "__fish_use_subcommand" -a "prune" -d "Remove stale runs"
complete -c todoscan -n "__fish_use_subcommand" -a "update" -d "Update to latest version"
complete -c todoscan -n "__fish_use_subcommand" -a "debug" -d "Show debug information"
complete -c todoscan -n "__fish_use_subcommand" -a "completions" -d "Generate shell completions"
complete -c todoscan -n "__fish_use_subcommand" -a "help" -d "Show help"
complete -c todoscan -n "__fish_use_subcommand" -a "version" -d "Show version"

# Directory completion for scan
complete -c todoscan -n "__fish_seen_subcommand_from scan" -a "(__fish_complete_directories)"

# Flags
complete -c todoscan -n "__fish_seen_subcommand_from prune" -l dry-run -d "Preview changes"
complete -c todoscan -n "__fish_seen_subcommand_from update" -l check -d "Check only"

# Shell completion for completions command
complete -c todoscan -n "__fish_seen_subcommand_from completions" -a "bash zsh fish" -d "Shell"
`
}

// Generate returns the completion script for the given shell
func Generate(shell string) (string, error) {
	switch strings.ToLower(shell) {
	case "bash":
		return Bash(), nil
	case "zsh":
		return Zsh(), nil
	case "fish":
		return Fish(), nil
	default:
		return "", fmt.Errorf("unsupported shell: %s (supported: bash, zsh, fish)", shell)
	}
}
