package twitter

import (
	"context"
	"fmt"
	"strings"
)

// ログインタスクフロー関連の定数
const (
	subtaskJSInstrumentation   = "LoginJsInstrumentationSubtask"
	subtaskEnterUserIdentifier = "LoginEnterUserIdentifierSSO"
	subtaskEnterAlternateID    = "LoginEnterAlternateIdentifierSubtask"
	subtaskEnterPassword       = "LoginEnterPassword"
	subtaskAccountDuplication  = "AccountDuplicationCheck"
	subtaskTwoFactorChallenge  = "LoginTwoFactorAuthChallenge"
	subtaskDenyLogin           = "DenyLoginSubtask"
	subtaskLoginSuccess        = "LoginSuccessSubtask"
	maxLoginSteps              = 12
	onboardingTaskPath         = "/1.1/onboarding/task.json"
	logoutPath                 = "/1.1/account/logout.json"
	flowStatusSuccess          = "success"
)

type flowSubtask struct {
	SubtaskID string `json:"subtask_id"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type flowResponse struct {
	FlowToken string        `json:"flow_token"`
	Status    string        `json:"status"`
	Subtasks  []flowSubtask `json:"subtasks"`
	Errors    []apiError    `json:"errors"`
}

// Login は、認証情報を使ってログインタスクフローを最後まで進めます。
// 認証情報が無い場合は ErrNoCredentials を返し、セッションは匿名のままです。
func (c *Client) Login(ctx context.Context) error {
	creds := c.cfg.Credentials
	if creds.Empty() {
		return ErrNoCredentials
	}

	// フローの開始にもゲストトークンが必要
	if _, err := c.ensureGuestToken(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	next, err := c.flowTask(ctx, "?flow_name=login", map[string]any{
		"input_flow_data": map[string]any{
			"flow_context": map[string]any{
				"debug_overrides": map[string]any{},
				"start_location":  map[string]any{"location": "splash_screen"},
			},
		},
		"subtask_versions": map[string]any{},
	})
	if err != nil {
		return err
	}

	for step := 0; step < maxLoginSteps; step++ {
		if len(next.Subtasks) == 0 {
			if next.Status == flowStatusSuccess {
				break
			}
			return fmt.Errorf("%w: flow ended with status %q", ErrLoginFailed, next.Status)
		}

		subtaskID := next.Subtasks[0].SubtaskID
		input, done, err := loginSubtaskInput(subtaskID, creds)
		if err != nil {
			return err
		}

		next, err = c.flowTask(ctx, "", map[string]any{
			"flow_token":     next.FlowToken,
			"subtask_inputs": input,
		})
		if err != nil {
			return err
		}
		if done {
			c.mu.Lock()
			c.loggedIn = true
			c.mu.Unlock()
			return nil
		}
	}

	if next.Status != flowStatusSuccess || len(next.Subtasks) > 0 {
		return fmt.Errorf("%w: too many login steps", ErrLoginFailed)
	}

	c.mu.Lock()
	c.loggedIn = true
	c.mu.Unlock()
	return nil
}

// loginSubtaskInput は、サブタスクに対する入力を組み立てます。done は成功サブタスクへの応答であることを示します。
func loginSubtaskInput(subtaskID string, creds Credentials) (input []map[string]any, done bool, err error) {
	switch subtaskID {
	case subtaskJSInstrumentation:
		input = []map[string]any{{
			"subtask_id":         subtaskID,
			"js_instrumentation": map[string]any{"response": "{}", "link": "next_link"},
		}}
	case subtaskEnterUserIdentifier:
		input = []map[string]any{{
			"subtask_id": subtaskID,
			"settings_list": map[string]any{
				"setting_responses": []map[string]any{{
					"key": "user_identifier",
					"response_data": map[string]any{
						"text_data": map[string]any{"result": creds.Username},
					},
				}},
				"link": "next_link",
			},
		}}
	case subtaskEnterAlternateID:
		if creds.Email == "" {
			return nil, false, fmt.Errorf("%w: the account requires an email address for verification", ErrLoginFailed)
		}
		input = []map[string]any{{
			"subtask_id": subtaskID,
			"enter_text": map[string]any{"text": creds.Email, "link": "next_link"},
		}}
	case subtaskEnterPassword:
		input = []map[string]any{{
			"subtask_id":     subtaskID,
			"enter_password": map[string]any{"password": creds.Password, "link": "next_link"},
		}}
	case subtaskAccountDuplication:
		input = []map[string]any{{
			"subtask_id":              subtaskID,
			"check_logged_in_account": map[string]any{"link": "AccountDuplicationCheck_false"},
		}}
	case subtaskLoginSuccess:
		return []map[string]any{}, true, nil
	case subtaskTwoFactorChallenge:
		return nil, false, fmt.Errorf("%w: two-factor authentication is not supported", ErrLoginFailed)
	case subtaskDenyLogin:
		return nil, false, fmt.Errorf("%w: the login attempt was denied", ErrLoginFailed)
	default:
		return nil, false, fmt.Errorf("%w: unsupported subtask %q", ErrLoginFailed, subtaskID)
	}
	return input, false, nil
}

// flowTask は、オンボーディングタスクAPIに1ステップ分のリクエストを送ります。
func (c *Client) flowTask(ctx context.Context, query string, body map[string]any) (*flowResponse, error) {
	h, err := c.headers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	var resp flowResponse
	if err := c.http.PostJSON(ctx, c.cfg.APIBase+onboardingTaskPath+query, h, body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("%w: %s", ErrLoginFailed, strings.Join(msgs, "; "))
	}
	return &resp, nil
}

// Logout は、ログイン済みの場合にセッションを終了し、Cookie とゲストトークンを破棄します。
func (c *Client) Logout(ctx context.Context) error {
	if !c.IsLoggedIn() {
		return nil
	}

	h, err := c.headers(ctx)
	if err != nil {
		return err
	}
	postErr := c.http.PostJSON(ctx, c.cfg.APIBase+logoutPath, h, nil, nil)

	// リクエストの成否にかかわらずローカルの状態は破棄する
	c.mu.Lock()
	c.loggedIn = false
	c.guestToken = ""
	c.mu.Unlock()
	c.http.ResetCookies()

	if postErr != nil {
		return fmt.Errorf("logout: %w", postErr)
	}
	return nil
}
